package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/types"
)

func (bh *Handlers) handleSettingsMenu(ctx context.Context, b *bot.Bot, ev callbackEvent) {
	st, err := bh.chat.Settings(ctx, ev.access.UserID)
	if err != nil {
		bh.answerCallbackAlert(ctx, b, ev.id, messages.ErrorDefault())
		return
	}
	bh.answerCallback(ctx, b, ev.id, "")
	bh.edit(ctx, b, ev.chatID, ev.messageID, messages.Settings(st.Temperature, st.SystemPrompt), settingsKeyboard(st.Temperature))
}

// handleSettingsInput applies a new system prompt or temperature. Invalid
// input keeps the session waiting for another try.
func (bh *Handlers) handleSettingsInput(ctx context.Context, b *bot.Bot, msg *models.Message, a access.Access, session *types.Session) {
	var text string
	switch session.State {
	case types.StateAwaitSystemPrompt:
		prompt, err := bh.chat.UpdateSystemPrompt(ctx, a.UserID, msg.Text)
		if errors.Is(err, chat.ErrEmptyPrompt) {
			bh.send(ctx, b, msg.Chat.ID, messages.PromptEmpty(), cancelKeyboard())
			return
		}
		if err != nil {
			bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
			return
		}
		text = messages.PromptUpdated()
		if prompt == nil {
			text = messages.PromptReset()
		}
	case types.StateAwaitTemperature:
		temp, err := bh.chat.UpdateTemperature(ctx, a.UserID, msg.Text)
		if errors.Is(err, chat.ErrBadTemperature) {
			bh.send(ctx, b, msg.Chat.ID, messages.TemperatureInvalid(), cancelKeyboard())
			return
		}
		if err != nil {
			bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
			return
		}
		text = messages.TemperatureReset(bh.chat.DefaultTemperature())
		if temp != nil {
			text = messages.TemperatureSet(*temp)
		}
	default:
		return
	}

	session.EndInput()
	_ = bh.saveSession(ctx, session)
	bh.send(ctx, b, msg.Chat.ID, text, nil)

	st, err := bh.chat.Settings(ctx, a.UserID)
	if err != nil {
		return
	}
	bh.send(ctx, b, msg.Chat.ID, messages.Settings(st.Temperature, st.SystemPrompt), settingsKeyboard(st.Temperature))
}
