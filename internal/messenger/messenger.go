// Package messenger wraps the Telegram calls that fan out to many chats.
package messenger

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/messages"
)

type Messenger struct {
	b *bot.Bot
}

func New(b *bot.Bot) *Messenger {
	return &Messenger{b: b}
}

// SendHTML sends an HTML message and returns its id.
func (m *Messenger) SendHTML(ctx context.Context, chatID int64, text string) (int, error) {
	return m.Send(ctx, chatID, text, nil)
}

func (m *Messenger) Send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	msg, err := m.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (m *Messenger) Pin(ctx context.Context, chatID int64, messageID int) error {
	_, err := m.b.PinChatMessage(ctx, &bot.PinChatMessageParams{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	})
	return err
}

func (m *Messenger) Unpin(ctx context.Context, chatID int64, messageID int) error {
	_, err := m.b.UnpinChatMessage(ctx, &bot.UnpinChatMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	_, err := m.b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

// Unreachable reports platform rejections: the user blocked the bot, the
// chat is gone or the request was refused as malformed.
func Unreachable(err error) bool {
	return errors.Is(err, bot.ErrorForbidden) ||
		errors.Is(err, bot.ErrorBadRequest) ||
		errors.Is(err, bot.ErrorNotFound)
}
