package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

// handleBroadcastDraft stores the text with its formatting as HTML and asks
// for confirmation. A new text while confirmation is pending replaces the draft.
func (bh *Handlers) handleBroadcastDraft(ctx context.Context, b *bot.Bot, msg *models.Message, a access.Access, session *types.Session) {
	draft := messages.EntitiesHTML(msg.Text, msg.Entities)
	session.State = types.StateAdminBroadcastConfirm
	session.Payload.BroadcastText = draft
	if err := bh.saveSession(ctx, session); err != nil {
		bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
		return
	}

	// The excerpt may cut through a tag.
	if bh.send(ctx, b, msg.Chat.ID, messages.BroadcastPreview(draft), broadcastConfirmKeyboard()) == nil {
		bh.send(ctx, b, msg.Chat.ID, messages.BroadcastPreviewPlain(msg.Text), broadcastConfirmKeyboard())
	}
}

func (bh *Handlers) handleBroadcastConfirm(ctx context.Context, b *bot.Bot, ev callbackEvent, pin bool) {
	session, err := bh.loadSession(ctx, ev.access.UserID)
	if err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	text := session.Payload.BroadcastText
	valid := session.State == types.StateAdminBroadcastConfirm && text != ""
	session.Reset()
	if err := bh.saveSession(ctx, session); err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	if !valid {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.BroadcastTextMissing())
		return
	}

	if _, err := bh.broadcasts.Create(ctx, text, pin, ev.access.UserID); err != nil {
		bh.log.Error("failed to start broadcast", slog.Int64("admin_id", ev.access.UserID), sl.Err(err))
		bh.answerCallback(ctx, b, ev.id, "")
		bh.edit(ctx, b, ev.chatID, ev.messageID, bh.failure(ev.access, err), adminBackKeyboard())
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.BroadcastStarted(), nil)
}

func (bh *Handlers) handleBroadcastManage(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	action, id, err := parseBroadcast(ev.data)
	if err != nil {
		bh.answerCallback(ctx, b, ev.id, "")
		return
	}
	unpin := action == broadcast.ActionUnpin
	bh.answerCallback(ctx, b, ev.id, messages.BroadcastManaging(unpin))

	res, err := bh.broadcasts.Manage(ctx, action, id)
	switch {
	case errors.Is(err, broadcast.ErrBroadcastNotFound):
		bh.send(ctx, b, ev.chatID, messages.BroadcastNotFound(), adminBackKeyboard())
	case err != nil:
		bh.log.Error("failed to manage broadcast", slog.Int64("broadcast_id", id), slog.String("action", string(action)), sl.Err(err))
		bh.send(ctx, b, ev.chatID, bh.failure(ev.access, err), adminBackKeyboard())
	default:
		bh.send(ctx, b, ev.chatID, messages.BroadcastManaged(unpin, res.Delivered, res.Failed), adminBackKeyboard())
	}
}
