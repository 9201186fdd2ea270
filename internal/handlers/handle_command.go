package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

const notifyTimeout = 30 * time.Second

// commandName strips arguments and the @bot suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, a access.Access) {
	msg := update.Message
	switch commandName(msg.Text) {
	case "/start":
		bh.start(ctx, b, msg.Chat.ID, 0, a)
	case "/new":
		bh.newDialog(ctx, b, msg.Chat.ID, a)
	case "/help":
		bh.send(ctx, b, msg.Chat.ID, bh.helpText(), backMainKeyboard())
	case "/admin":
		if !a.Admin {
			bh.send(ctx, b, msg.Chat.ID, messages.NoPermission(), nil)
			return
		}
		if session, err := bh.loadSession(ctx, a.UserID); err == nil && session.State != types.StateIdle {
			session.Reset()
			_ = bh.saveSession(ctx, session)
		}
		bh.send(ctx, b, msg.Chat.ID, messages.AdminPanel(), adminMenuKeyboard())
	default:
		bh.send(ctx, b, msg.Chat.ID, messages.FallbackHint(), nil)
	}
}

// start cancels any pending flow and shows the main menu, editing messageID
// when it is set.
func (bh *Handlers) start(ctx context.Context, b *bot.Bot, chatID int64, messageID int, a access.Access) {
	session, err := bh.loadSession(ctx, a.UserID)
	if err != nil {
		bh.send(ctx, b, chatID, bh.failure(a, err), nil)
		return
	}
	if session.State != types.StateIdle || len(session.Payload.History) > 0 {
		canceled := session.State != types.StateIdle
		session.Reset()
		if bh.saveSession(ctx, session) == nil && canceled {
			bh.send(ctx, b, chatID, messages.ActionCanceled(), nil)
		}
	}

	bh.edit(ctx, b, chatID, messageID, messages.Welcome(bh.now()), bh.buildMenuKeyboard(a))
}

// announceUser tells the administrators about a sender seen for the first time.
func (bh *Handlers) announceUser(ctx context.Context, b *bot.Bot, from *models.User) {
	bh.log.Info("new user registered", slog.Int64("user_id", from.ID))
	go bh.notifyAdmins(context.WithoutCancel(ctx), b, messages.NewUserNotice(from.ID, fullName(from), from.Username))
}

func (bh *Handlers) notifyAdmins(ctx context.Context, b *bot.Bot, text string) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	for _, id := range bh.admins.AdminIDs() {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    id,
			Text:      text,
			ParseMode: messages.ParseModeHTML,
		}); err != nil {
			bh.log.Debug("failed to notify admin", slog.Int64("admin_id", id), sl.Err(err))
		}
	}
}

func (bh *Handlers) newDialog(ctx context.Context, b *bot.Bot, chatID int64, a access.Access) {
	session, err := bh.loadSession(ctx, a.UserID)
	if err != nil {
		bh.send(ctx, b, chatID, bh.failure(a, err), nil)
		return
	}
	if session.State != types.StateChatting {
		bh.send(ctx, b, chatID, messages.FallbackHint(), nil)
		return
	}
	session.Payload.History = nil
	if err := bh.saveSession(ctx, session); err != nil {
		bh.send(ctx, b, chatID, bh.failure(a, err), nil)
		return
	}
	bh.send(ctx, b, chatID, messages.HistoryCleared(), nil)
}

func (bh *Handlers) helpText() string {
	plans := bh.catalog.Plans()
	view := make([]messages.HelpPlan, 0, len(plans))
	for _, p := range plans {
		limit, unlimited := bh.catalog.DailyLimit(p.Level)
		view = append(view, messages.HelpPlan{Name: p.Name, Limit: limit, Unlimited: unlimited})
	}
	return messages.Help(view)
}

func fullName(u *models.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
