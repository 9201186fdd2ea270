package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/types"
)

// HandleText routes a private text message by the session state.
func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, a access.Access) {
	msg := update.Message
	session, err := bh.loadSession(ctx, a.UserID)
	if err != nil {
		bh.send(ctx, b, msg.Chat.ID, bh.failure(a, err), nil)
		return
	}

	switch state := session.State; {
	case state == types.StateChatting:
		bh.handleChatText(ctx, b, msg, a, session)
	case state == types.StateAwaitImagePrompt:
		bh.handleImagePrompt(ctx, b, msg, a, session)
	case state == types.StateAwaitSystemPrompt || state == types.StateAwaitTemperature:
		bh.handleSettingsInput(ctx, b, msg, a, session)
	case state.IsAdmin():
		if !a.Admin {
			bh.log.Warn("admin state held by non-admin", slog.Int64("user_id", a.UserID), slog.String("state", string(state)))
			session.Reset()
			_ = bh.saveSession(ctx, session)
			bh.send(ctx, b, msg.Chat.ID, messages.NoPermission(), nil)
			return
		}
		bh.handleAdminInput(ctx, b, msg, a, session)
	default:
		bh.send(ctx, b, msg.Chat.ID, messages.FallbackHint(), nil)
	}
}
