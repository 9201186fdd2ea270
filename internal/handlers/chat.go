package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

func (bh *Handlers) handleModelsMenu(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err == nil && session.State != types.StateIdle {
		session.Reset()
		_ = bh.saveSession(ctx, session)
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.ChooseCategory(),
		categoriesKeyboard(bh.catalog.ProvidersFor(ev.access.Level)))
}

func (bh *Handlers) handleCategory(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	idx, err := parseInt(ev.data, prefixCategory)
	if err != nil {
		bh.answerCallback(ctx, b, ev.id, "")
		return
	}
	p, ok := bh.catalog.Provider(ev.access.Level, idx)
	if !ok {
		bh.answerCallback(ctx, b, ev.id, "")
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.CategoryModels(p.Name),
		categoryModelsKeyboard(p, bh.status.Disabled()))
}

func (bh *Handlers) handleSelectModel(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	model := strings.TrimPrefix(ev.data, prefixModel)
	err := bh.chat.SelectModel(ctx, ev.access.UserID, ev.access.Level, model)
	switch {
	case errors.Is(err, chat.ErrModelUnavailable):
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ModelUnavailable())
		return
	case errors.Is(err, chat.ErrModelNotAllowed):
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ModelNotInPlan())
		return
	case err != nil:
		bh.log.Error("failed to select model", slog.Int64("user_id", ev.access.UserID), slog.String("model", model), sl.Err(err))
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}

	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	session.Reset()
	session.State = types.StateChatting
	session.Payload.Model = model
	if err := bh.saveSession(ctx, session); err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.send(ctx, b, ev.chatID, messages.ModelSelected(model), nil)
}

func (bh *Handlers) handleChatNew(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err != nil || session.State != types.StateChatting {
		bh.answerCallback(ctx, b, ev.id, "")
		return
	}
	session.Payload.History = nil
	if err := bh.saveSession(ctx, session); err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	bh.answerCallback(ctx, b, ev.id, messages.HistoryClearedShort())
	bh.send(ctx, b, ev.chatID, messages.HistoryCleared(), nil)
}

// handleChatText runs one dialog turn and keeps the trimmed history in the session.
func (bh *Handlers) handleChatText(ctx context.Context, b *bot.Bot, msg *models.Message, a access.Access, session *types.Session) {
	thinking := bh.send(ctx, b, msg.Chat.ID, messages.Thinking(), nil)
	reply, err := bh.chat.Ask(ctx, a.UserID, session.Payload.Model, session.Payload.History, msg.Text)
	if thinking != nil {
		bh.deleteMessage(ctx, b, msg.Chat.ID, thinking.ID)
	}

	if err != nil {
		if errors.Is(err, chat.ErrNoModel) {
			session.Reset()
			_ = bh.saveSession(ctx, session)
		}
		bh.send(ctx, b, msg.Chat.ID, bh.requestError(a, err), chatKeyboard())
		return
	}

	session.Payload.History = reply.History
	if err := bh.saveSession(ctx, session); err != nil {
		bh.log.Warn("dialog history not saved", slog.Int64("user_id", a.UserID), sl.Err(err))
	}
	footer := messages.ChatFooter(reply.Model, chat.FormatElapsed(reply.Elapsed))
	bh.sendLong(ctx, b, msg.Chat.ID, 0, reply.Text, "", footer, chatKeyboard())
}

// requestError maps errors of a model request onto user-facing text.
func (bh *Handlers) requestError(a access.Access, err error) string {
	switch {
	case errors.Is(err, access.ErrLimitReached):
		return messages.LimitReached()
	case errors.Is(err, access.ErrBlocked):
		return messages.Blocked()
	case errors.Is(err, chat.ErrNoModel):
		return messages.NoModelSelected()
	case errors.Is(err, chat.ErrModelNotAllowed):
		return messages.ModelNotInPlan()
	case errors.Is(err, chat.ErrModelUnavailable):
		return messages.FeatureUnavailable()
	case errors.Is(err, chat.ErrPaidOnly):
		return messages.FeaturePaidOnly()
	}
	return bh.failure(a, err)
}
