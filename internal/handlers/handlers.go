package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/admin"
	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/contextkeys"
	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/modelstatus"
	"github.com/BatmanBruc/arima-bot/internal/plans"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

type UserRegistry interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
}

type RequestCounter interface {
	RequestsToday(ctx context.Context, userID int64) (int, error)
}

type ModelSweeper interface {
	Run(ctx context.Context) []modelstatus.Result
}

type AdminDirectory interface {
	AdminIDs() []int64
}

type Config struct {
	SupportUsername string
	PaymentUsername string
	GroupTrigger    string
}

type Deps struct {
	Sessions   types.SessionStore
	Users      UserRegistry
	Catalog    *plans.Catalog
	Chat       *chat.Service
	Admin      *admin.Service
	Broadcasts *broadcast.Manager
	Sweeper    ModelSweeper
	Status     *modelstatus.Cache
	Counter    RequestCounter
	Admins     AdminDirectory
	Config     Config
	Log        *slog.Logger
}

type Handlers struct {
	sessions   types.SessionStore
	users      UserRegistry
	catalog    *plans.Catalog
	chat       *chat.Service
	admin      *admin.Service
	broadcasts *broadcast.Manager
	sweeper    ModelSweeper
	status     *modelstatus.Cache
	counter    RequestCounter
	admins     AdminDirectory
	cfg        Config
	log        *slog.Logger
	now        func() time.Time
}

func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		sessions:   d.Sessions,
		users:      d.Users,
		catalog:    d.Catalog,
		chat:       d.Chat,
		admin:      d.Admin,
		broadcasts: d.Broadcasts,
		sweeper:    d.Sweeper,
		status:     d.Status,
		counter:    d.Counter,
		admins:     d.Admins,
		cfg:        d.Config,
		log:        d.Log,
		now:        time.Now,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	messageType, _ := contextkeys.GetMessageType(ctx)
	a, ok := contextkeys.GetAccess(ctx)
	if !ok {
		bh.log.Error("access not found in context")
		if chatID := bh.getChatIDFromUpdate(update); chatID != 0 {
			bh.send(ctx, b, chatID, messages.ErrorDefault(), nil)
		}
		return
	}
	if contextkeys.IsNewUser(ctx) && !a.Admin {
		if from := updateSender(update); from != nil {
			bh.announceUser(ctx, b, from)
		}
	}

	switch messageType {
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, a)
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, a)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update, a)
	case contextkeys.MessageTypeGroupText:
		bh.HandleGroupText(ctx, b, update, a)
	case contextkeys.MessageTypeGroupCmd:
		bh.HandleGroupCommand(ctx, b, update, a)
	case contextkeys.MessageTypeMedia:
		bh.send(ctx, b, update.Message.Chat.ID, messages.FallbackHint(), nil)
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		msg := update.CallbackQuery.Message
		if msg.Message != nil {
			return msg.Message.Chat.ID
		}
		if msg.InaccessibleMessage != nil {
			return msg.InaccessibleMessage.Chat.ID
		}
		return update.CallbackQuery.From.ID
	}
	return 0
}

func updateSender(update *models.Update) *models.User {
	if update.Message != nil {
		return update.Message.From
	}
	if update.CallbackQuery != nil {
		return &update.CallbackQuery.From
	}
	return nil
}

// callbackMessageID is zero when the message under the button is no longer
// accessible.
func callbackMessageID(update *models.Update) int {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0
	}
	return update.CallbackQuery.Message.Message.ID
}

func (bh *Handlers) send(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) *models.Message {
	msg, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		bh.log.Warn("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
		return nil
	}
	return msg
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string, markup models.ReplyMarkup) *models.Message {
	sent, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ParseMode:       messages.ParseModeHTML,
		ReplyMarkup:     markup,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		bh.log.Warn("failed to reply", slog.Int64("chat_id", msg.Chat.ID), sl.Err(err))
		return nil
	}
	return sent
}

// edit replaces the text of messageID and falls back to a new message when
// the edit is rejected or there is nothing to edit.
func (bh *Handlers) edit(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, markup models.ReplyMarkup) {
	if messageID != 0 {
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: markup,
		})
		if err == nil {
			return
		}
		bh.log.Debug("edit failed, sending new message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
	bh.send(ctx, b, chatID, text, markup)
}

func (bh *Handlers) deleteMessage(ctx context.Context, b *bot.Bot, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID}); err != nil {
		bh.log.Debug("failed to delete message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

// sendLong sends a model answer split at the message limit. header opens the
// first part, footer and markup close the last one.
func (bh *Handlers) sendLong(ctx context.Context, b *bot.Bot, chatID int64, replyTo int, answer, header, footer string, markup models.ReplyMarkup) {
	parts := messages.Paginate(answer, header, footer, messages.MaxMessageLen)
	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: messages.ParseModeHTML,
		}
		if i == len(parts)-1 {
			params.ReplyMarkup = markup
		}
		if i == 0 && replyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			bh.log.Warn("failed to send message part", slog.Int64("chat_id", chatID), slog.Int("part", i), sl.Err(err))
			return
		}
	}
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) {
	bh.answer(ctx, b, callbackID, text, false)
}

func (bh *Handlers) answerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID, text string) {
	bh.answer(ctx, b, callbackID, text, true)
}

func (bh *Handlers) answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		bh.log.Debug("failed to answer callback", sl.Err(err))
	}
}

func (bh *Handlers) loadSession(ctx context.Context, userID int64) (*types.Session, error) {
	session, err := bh.sessions.GetSession(ctx, userID)
	if err != nil {
		bh.log.Error("failed to load session", slog.Int64("user_id", userID), sl.Err(err))
		return nil, err
	}
	return session, nil
}

func (bh *Handlers) saveSession(ctx context.Context, session *types.Session) error {
	if err := bh.sessions.SaveSession(ctx, session); err != nil {
		bh.log.Error("failed to save session", slog.Int64("user_id", session.UserID), sl.Err(err))
		return err
	}
	return nil
}

// failure renders an unexpected error. Administrators see the detail: the
// short status for model API errors and the raw text otherwise.
func (bh *Handlers) failure(a access.Access, err error) string {
	if !a.Admin || err == nil {
		return messages.ErrorDefault()
	}
	var apiErr *llm.Error
	if errors.As(err, &apiErr) {
		return messages.ErrorForAdmin(apiErr.Display())
	}
	return messages.ErrorForAdmin(err.Error())
}
