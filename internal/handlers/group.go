package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

// HandleGroupText answers a group message that starts with the trigger.
// Only paid plans may use the bot in groups and requests carry no history.
func (bh *Handlers) HandleGroupText(ctx context.Context, b *bot.Bot, update *models.Update, a access.Access) {
	msg := update.Message
	if a.Level == types.LevelFree {
		bh.reply(ctx, b, msg, messages.GroupPaidOnly(), nil)
		return
	}
	prompt := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Text), bh.cfg.GroupTrigger))
	if prompt == "" {
		bh.reply(ctx, b, msg, messages.GroupEmptyPrompt(bh.cfg.GroupTrigger), nil)
		return
	}

	thinking := bh.reply(ctx, b, msg, messages.Thinking(), nil)
	rep, err := bh.chat.AskOnce(ctx, a.UserID, prompt)
	if thinking != nil {
		bh.deleteMessage(ctx, b, msg.Chat.ID, thinking.ID)
	}
	if errors.Is(err, chat.ErrPaidOnly) {
		bh.reply(ctx, b, msg, messages.GroupPaidOnly(), nil)
		return
	}
	if err != nil {
		bh.reply(ctx, b, msg, bh.requestError(a, err), nil)
		return
	}

	bh.sendLong(ctx, b, msg.Chat.ID, msg.ID, rep.Text, messages.GroupHeader(rep.Model, rep.DefaultModel), "", nil)
}

func (bh *Handlers) HandleGroupCommand(ctx context.Context, b *bot.Bot, update *models.Update, a access.Access) {
	msg := update.Message
	switch commandName(msg.Text) {
	case "/start", "/new":
		if a.Level == types.LevelFree {
			bh.reply(ctx, b, msg, messages.GroupStartPaidOnly(), nil)
			return
		}
		bh.reply(ctx, b, msg, messages.GroupRedirect(bh.cfg.GroupTrigger), groupRedirectKeyboard(bh.botUsername(ctx, b)))
	case "/help":
		bh.reply(ctx, b, msg, messages.GroupHelp(bh.cfg.GroupTrigger), nil)
	}
}

func (bh *Handlers) botUsername(ctx context.Context, b *bot.Bot) string {
	me, err := b.GetMe(ctx)
	if err != nil {
		bh.log.Debug("failed to get bot info", sl.Err(err))
		return ""
	}
	return me.Username
}
