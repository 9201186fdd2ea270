package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
)

type MarkupSender interface {
	Send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error)
}

// BroadcastReporter tells the initiating administrator how a broadcast went.
type BroadcastReporter struct {
	sender MarkupSender
	log    *slog.Logger
}

func NewBroadcastReporter(sender MarkupSender, log *slog.Logger) *BroadcastReporter {
	return &BroadcastReporter{sender: sender, log: log}
}

func (r *BroadcastReporter) Completed(ctx context.Context, job broadcast.Job, res broadcast.Result) {
	text := messages.BroadcastSummary(job.Text, res.Delivered, res.Failed)
	if _, err := r.sender.Send(ctx, job.InitiatorID, text, broadcastManageKeyboard(job.BroadcastID)); err != nil {
		r.log.Warn("failed to send broadcast summary",
			slog.Int64("broadcast_id", job.BroadcastID),
			slog.Int64("admin_id", job.InitiatorID),
			sl.Err(err),
		)
	}
}

func (r *BroadcastReporter) Aborted(ctx context.Context, job broadcast.Job, err error) {
	if _, serr := r.sender.Send(ctx, job.InitiatorID, messages.BroadcastAborted(err), nil); serr != nil {
		r.log.Warn("failed to report aborted broadcast",
			slog.Int64("broadcast_id", job.BroadcastID),
			sl.Err(serr),
		)
	}
}
