package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

func (bh *Handlers) handleImageMenu(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	if err := bh.chat.ImageAllowed(ev.access.Level); err != nil {
		text := messages.FeaturePaidOnly()
		if errors.Is(err, chat.ErrModelUnavailable) {
			text = messages.FeatureUnavailable()
		}
		bh.answerCallbackAlert(ctx, b, ev.id, text)
		return
	}
	bh.startInput(ctx, b, ev, types.StateAwaitImagePrompt, messages.ImagePromptAsk())
}

func (bh *Handlers) handleImagePrompt(ctx context.Context, b *bot.Bot, msg *models.Message, a access.Access, session *types.Session) {
	session.EndInput()
	if err := bh.saveSession(ctx, session); err != nil {
		bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
		return
	}

	working := bh.send(ctx, b, msg.Chat.ID, messages.ImageWorking(), nil)
	workingID := 0
	if working != nil {
		workingID = working.ID
	}

	url, err := bh.chat.Draw(ctx, a.UserID, msg.Text)
	if err != nil {
		bh.edit(ctx, b, msg.Chat.ID, workingID, bh.requestError(a, err), nil)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    msg.Chat.ID,
		Photo:     &models.InputFileString{Data: url},
		Caption:   messages.ImageCaption(msg.Text),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		bh.log.Warn("failed to send image", slog.Int64("user_id", a.UserID), sl.Err(err))
		bh.edit(ctx, b, msg.Chat.ID, workingID, bh.failure(a, err), nil)
		return
	}
	bh.deleteMessage(ctx, b, msg.Chat.ID, workingID)
}
