package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/contextkeys"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/metrics"
	"github.com/BatmanBruc/arima-bot/internal/sl"
)

type AccessSource interface {
	Snapshot(ctx context.Context, userID int64) (access.Access, error)
	IsAdmin(userID int64) bool
}

// UserTracker records the sender of every update. created reports a first sighting.
type UserTracker interface {
	AddUser(ctx context.Context, userID int64, displayName string) (created bool, err error)
}

// adminCallbackPrefixes guard the buttons that only administrators may press.
var adminCallbackPrefixes = []string{
	"admin_", "brd:", "pag:", "broadcast_", "confirm_reset_all_subs", "menu_admin",
}

type Middlewares struct {
	access       AccessSource
	users        UserTracker
	groupTrigger string
	log          *slog.Logger
}

func New(access AccessSource, users UserTracker, groupTrigger string, log *slog.Logger) *Middlewares {
	return &Middlewares{
		access:       access,
		users:        users,
		groupTrigger: groupTrigger,
		log:          log,
	}
}

// Chain wraps the handler in the order recover, analyze, access, track.
func (m *Middlewares) Chain(next bot.HandlerFunc) bot.HandlerFunc {
	return m.Recover(m.AnalyzeMessageMiddleware(m.CheckAccessMiddleware(m.TrackUserMiddleware(next))))
}

// Recover turns a panic into an apology. Administrators also get the detail.
func (m *Middlewares) Recover(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			metrics.Panics.Inc()
			userID, chatID := updateIDs(update)
			m.log.Error("handler panicked",
				slog.Int64("user_id", userID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			if chatID == 0 {
				return
			}
			text := messages.ErrorDefault()
			if m.access.IsAdmin(userID) {
				text = messages.ErrorForAdmin(fmt.Sprint(r))
			}
			if _, err := b.SendMessage(context.WithoutCancel(ctx), &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      text,
				ParseMode: messages.ParseModeHTML,
			}); err != nil {
				m.log.Debug("failed to report panic", sl.Err(err))
			}
		}()
		next(ctx, b, update)
	}
}

func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			metrics.Updates.WithLabelValues("callback").Inc()
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			ctx = contextkeys.WithCallbackData(ctx, update.CallbackQuery.Data)
			next(ctx, b, update)
			return
		}
		if update.Message == nil || update.Message.From == nil {
			return
		}

		msgType := m.determineMessageType(update.Message)
		if msgType == contextkeys.MessageTypeUnknown {
			return
		}
		metrics.Updates.WithLabelValues(string(msgType)).Inc()
		next(contextkeys.WithMessageType(ctx, msgType), b, update)
	}
}

// determineMessageType returns MessageTypeUnknown for updates the bot ignores,
// such as group chatter that neither starts with the trigger nor is a command.
func (m *Middlewares) determineMessageType(msg *models.Message) contextkeys.MessageType {
	text := strings.TrimSpace(msg.Text)
	if isGroup(msg.Chat) {
		switch {
		case strings.HasPrefix(text, "/"):
			return contextkeys.MessageTypeGroupCmd
		case m.groupTrigger != "" && strings.HasPrefix(text, m.groupTrigger):
			return contextkeys.MessageTypeGroupText
		default:
			return contextkeys.MessageTypeUnknown
		}
	}
	if msg.Chat.Type != models.ChatTypePrivate {
		return contextkeys.MessageTypeUnknown
	}

	switch {
	case strings.HasPrefix(text, "/"):
		return contextkeys.MessageTypeCommand
	case text != "":
		return contextkeys.MessageTypeText
	default:
		return contextkeys.MessageTypeMedia
	}
}

// CheckAccessMiddleware stops blocked users and non-administrators pressing
// administrator buttons. A store failure stops the update as well.
func (m *Middlewares) CheckAccessMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		userID, chatID := updateIDs(update)
		if userID == 0 {
			return
		}

		a, err := m.access.Snapshot(ctx, userID)
		if err != nil {
			m.log.Error("failed to evaluate access", slog.Int64("user_id", userID), sl.Err(err))
			m.reject(ctx, b, update, chatID, messages.ErrorDefault())
			return
		}
		if a.Blocked {
			m.reject(ctx, b, update, chatID, messages.Blocked())
			return
		}

		if data, ok := contextkeys.GetCallbackData(ctx); ok && !a.Admin && adminCallback(data) {
			m.log.Warn("admin callback rejected", slog.Int64("user_id", userID), slog.String("data", data))
			m.reject(ctx, b, update, chatID, messages.NoPermission())
			return
		}

		next(contextkeys.WithAccess(ctx, a), b, update)
	}
}

// TrackUserMiddleware registers the sender and stores the current handle,
// empty when the user has none. A failed write is logged and the update
// still goes through.
func (m *Middlewares) TrackUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		from := updateUser(update)
		if from == nil {
			next(ctx, b, update)
			return
		}
		created, err := m.users.AddUser(ctx, from.ID, from.Username)
		if err != nil {
			m.log.Warn("failed to track user", slog.Int64("user_id", from.ID), sl.Err(err))
		}
		if created {
			ctx = contextkeys.WithNewUser(ctx)
		}
		next(ctx, b, update)
	}
}

func (m *Middlewares) reject(ctx context.Context, b *bot.Bot, update *models.Update, chatID int64, text string) {
	var err error
	if update.CallbackQuery != nil {
		_, err = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
			Text:            text,
			ShowAlert:       true,
		})
	} else if chatID != 0 {
		_, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: messages.ParseModeHTML,
		})
	}
	if err != nil {
		m.log.Debug("failed to send rejection", sl.Err(err))
	}
}

func adminCallback(data string) bool {
	for _, p := range adminCallbackPrefixes {
		if strings.HasPrefix(data, p) {
			return true
		}
	}
	return false
}

func isGroup(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}

func updateUser(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	}
	return nil
}

func updateIDs(update *models.Update) (userID, chatID int64) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
	}
	return 0, 0
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}
