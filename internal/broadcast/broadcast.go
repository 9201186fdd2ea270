// Package broadcast fans an administrator's message out to every non-blocked
// user, keeps a receipt per delivered message and later unpins or deletes
// those messages in bulk.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/BatmanBruc/arima-bot/internal/messenger"
	"github.com/BatmanBruc/arima-bot/internal/metrics"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

var (
	ErrBroadcastNotFound = errors.New("broadcast not found")
	ErrEmptyText         = errors.New("broadcast text is empty")
	ErrNoQueue           = errors.New("broadcast queue is not configured")
)

type Action string

const (
	ActionSend   Action = "send"
	ActionUnpin  Action = "unpin"
	ActionDelete Action = "delete"
)

type Store interface {
	types.BroadcastStore
	ListUserIDs(ctx context.Context, excludeBlocked bool) ([]int64, error)
}

type Sender interface {
	SendHTML(ctx context.Context, chatID int64, text string) (int, error)
	Pin(ctx context.Context, chatID int64, messageID int) error
	Unpin(ctx context.Context, chatID int64, messageID int) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Reporter delivers the outcome of a send pass to the initiating administrator.
type Reporter interface {
	Completed(ctx context.Context, job Job, res Result)
	Aborted(ctx context.Context, job Job, err error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Job is one confirmed broadcast waiting for a worker.
type Job struct {
	ID          string    `json:"id"`
	BroadcastID int64     `json:"broadcast_id"`
	Text        string    `json:"text"`
	Pin         bool      `json:"pin"`
	InitiatorID int64     `json:"initiator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Result struct {
	BroadcastID int64
	Action      Action
	Delivered   int
	Failed      int
}

type Manager struct {
	store    Store
	sender   Sender
	reporter Reporter
	queue    Queue
	limit    rate.Limit
	log      *slog.Logger
}

// NewManager throttles outbound calls to one per delay. Every pass gets its
// own limiter, so concurrent broadcasts each run at the full rate and the
// combined rate grows with the number of queue workers. A zero delay
// disables the throttle.
func NewManager(store Store, sender Sender, reporter Reporter, delay time.Duration, log *slog.Logger) *Manager {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Manager{
		store:    store,
		sender:   sender,
		reporter: reporter,
		limit:    limit,
		log:      log,
	}
}

func (m *Manager) newLimiter() *rate.Limiter {
	return rate.NewLimiter(m.limit, 1)
}

func (m *Manager) SetQueue(q Queue) {
	m.queue = q
}

// Create stores the broadcast and hands it to the queue. It returns as soon
// as the job is queued.
func (m *Manager) Create(ctx context.Context, text string, pin bool, initiatorID int64) (Job, error) {
	const op = "broadcast.Create"

	if strings.TrimSpace(text) == "" {
		return Job{}, ErrEmptyText
	}
	if m.queue == nil {
		return Job{}, ErrNoQueue
	}

	id, err := m.store.CreateBroadcast(ctx, text, initiatorID)
	if err != nil {
		return Job{}, fmt.Errorf("%s: %w", op, err)
	}
	job := Job{
		ID:          uuid.NewString(),
		BroadcastID: id,
		Text:        text,
		Pin:         pin,
		InitiatorID: initiatorID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.queue.Enqueue(ctx, job); err != nil {
		if _, derr := m.store.DeleteBroadcast(ctx, id); derr != nil {
			m.log.Error("failed to drop unqueued broadcast", slog.Int64("broadcast_id", id), sl.Err(derr))
		}
		return Job{}, fmt.Errorf("%s: enqueue: %w", op, err)
	}

	m.log.Info("broadcast queued",
		slog.Int64("broadcast_id", id),
		slog.String("job_id", job.ID),
		slog.Int64("initiator_id", initiatorID),
		slog.Bool("pin", pin),
	)
	return job, nil
}

// Handle runs a job and reports the outcome. Queues call it from their workers.
func (m *Manager) Handle(ctx context.Context, job Job) error {
	res, err := m.Run(ctx, job)
	if err != nil {
		m.log.Error("broadcast aborted", slog.Int64("broadcast_id", job.BroadcastID), sl.Err(err))
		if m.reporter != nil {
			m.reporter.Aborted(context.WithoutCancel(ctx), job, err)
		}
		return err
	}
	if m.reporter != nil {
		m.reporter.Completed(context.WithoutCancel(ctx), job, res)
	}
	return nil
}

// Run performs one send pass over a snapshot of the non-blocked users. It is
// not cancellable once started. Recipients that already have a receipt, as
// after a redelivered job, are counted as delivered and skipped.
func (m *Manager) Run(ctx context.Context, job Job) (Result, error) {
	const op = "broadcast.Run"
	ctx = context.WithoutCancel(ctx)

	res := Result{BroadcastID: job.BroadcastID, Action: ActionSend}

	recipients, err := m.store.ListUserIDs(ctx, true)
	if err != nil {
		return res, fmt.Errorf("%s: recipients: %w", op, err)
	}
	done, err := m.delivered(ctx, job.BroadcastID)
	if err != nil {
		return res, fmt.Errorf("%s: receipts: %w", op, err)
	}

	log := m.log.With(slog.Int64("broadcast_id", job.BroadcastID))
	log.Info("broadcast started", slog.Int("recipients", len(recipients)), slog.Int("already_delivered", len(done)))

	limiter := m.newLimiter()
	for _, userID := range recipients {
		if _, ok := done[userID]; ok {
			res.Delivered++
			continue
		}
		_ = limiter.Wait(ctx)

		msgID, err := m.sender.SendHTML(ctx, userID, job.Text)
		if err != nil {
			res.Failed++
			m.failed(log, ActionSend, userID, err)
			continue
		}
		// A copy without a receipt can be neither unpinned nor deleted later.
		if err := m.store.AddSentMessage(ctx, job.BroadcastID, userID, msgID); err != nil {
			res.Failed++
			metrics.BroadcastMessages.WithLabelValues(string(ActionSend), "failed").Inc()
			log.Error("failed to store receipt", slog.Int64("user_id", userID), slog.Int("message_id", msgID), sl.Err(err))
			continue
		}
		res.Delivered++
		metrics.BroadcastMessages.WithLabelValues(string(ActionSend), "ok").Inc()

		if job.Pin {
			if err := m.sender.Pin(ctx, userID, msgID); err != nil {
				log.Debug("pin failed", slog.Int64("user_id", userID), sl.Err(err))
			}
		}
	}

	log.Info("broadcast finished", slog.Int("delivered", res.Delivered), slog.Int("failed", res.Failed))
	return res, nil
}

func (m *Manager) delivered(ctx context.Context, broadcastID int64) (map[int64]struct{}, error) {
	receipts, err := m.store.SentMessages(ctx, broadcastID)
	if err != nil {
		return nil, err
	}
	done := make(map[int64]struct{}, len(receipts))
	for _, r := range receipts {
		done[r.UserID] = struct{}{}
	}
	return done, nil
}

// Manage dispatches the unpin-all and delete-all controls.
func (m *Manager) Manage(ctx context.Context, action Action, broadcastID int64) (Result, error) {
	switch action {
	case ActionUnpin:
		return m.Unpin(ctx, broadcastID)
	case ActionDelete:
		return m.Delete(ctx, broadcastID)
	}
	return Result{}, fmt.Errorf("broadcast.Manage: unknown action %q", action)
}

func (m *Manager) Unpin(ctx context.Context, broadcastID int64) (Result, error) {
	return m.each(ctx, ActionUnpin, broadcastID, m.sender.Unpin)
}

// Delete removes every delivered copy and then the broadcast itself with its
// receipts. A second call reports ErrBroadcastNotFound.
func (m *Manager) Delete(ctx context.Context, broadcastID int64) (Result, error) {
	res, err := m.each(ctx, ActionDelete, broadcastID, m.sender.Delete)
	if errors.Is(err, ErrBroadcastNotFound) {
		if _, derr := m.store.DeleteBroadcast(ctx, broadcastID); derr != nil {
			m.log.Error("failed to drop empty broadcast", slog.Int64("broadcast_id", broadcastID), sl.Err(derr))
		}
		return res, err
	}
	if err != nil {
		return res, err
	}
	if _, err := m.store.DeleteBroadcast(ctx, broadcastID); err != nil {
		return res, fmt.Errorf("broadcast.Delete: %w", err)
	}
	return res, nil
}

func (m *Manager) each(ctx context.Context, action Action, broadcastID int64, fn func(context.Context, int64, int) error) (Result, error) {
	res := Result{BroadcastID: broadcastID, Action: action}

	receipts, err := m.store.SentMessages(ctx, broadcastID)
	if err != nil {
		return res, fmt.Errorf("broadcast.%s: %w", action, err)
	}
	if len(receipts) == 0 {
		return res, ErrBroadcastNotFound
	}

	log := m.log.With(slog.Int64("broadcast_id", broadcastID))
	limiter := m.newLimiter()
	for _, r := range receipts {
		_ = limiter.Wait(ctx)
		if err := fn(ctx, r.UserID, r.MessageID); err != nil {
			res.Failed++
			m.failed(log, action, r.UserID, err)
			continue
		}
		res.Delivered++
		metrics.BroadcastMessages.WithLabelValues(string(action), "ok").Inc()
	}
	log.Info("broadcast "+string(action)+" finished", slog.Int("ok", res.Delivered), slog.Int("failed", res.Failed))
	return res, nil
}

func (m *Manager) failed(log *slog.Logger, action Action, userID int64, err error) {
	metrics.BroadcastMessages.WithLabelValues(string(action), "failed").Inc()
	if messenger.Unreachable(err) {
		log.Debug("recipient unreachable", slog.String("action", string(action)), slog.Int64("user_id", userID), sl.Err(err))
		return
	}
	log.Warn("broadcast call failed", slog.String("action", string(action)), slog.Int64("user_id", userID), sl.Err(err))
}
