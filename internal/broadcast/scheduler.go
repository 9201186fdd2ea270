package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/BatmanBruc/arima-bot/internal/sl"
)

var (
	ErrAlreadyQueued = errors.New("job already queued")
	ErrQueueStopped  = errors.New("queue is stopped")
)

type JobHandler interface {
	Handle(ctx context.Context, job Job) error
}

// Scheduler is the in-process queue. Jobs that are queued or running when
// the process exits are lost.
type Scheduler struct {
	handler    JobHandler
	log        *slog.Logger
	workers    int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	jobQueue   chan Job
	inFlight   map[string]struct{}
	inFlightMu sync.Mutex
}

type SchedulerConfig struct {
	Workers int
}

func NewScheduler(handler JobHandler, config SchedulerConfig, log *slog.Logger) *Scheduler {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	queueSize := config.Workers * 2
	if queueSize < 10 {
		queueSize = 10
	}

	return &Scheduler{
		handler:  handler,
		log:      log.With(slog.String("component", "broadcast.scheduler")),
		workers:  config.Workers,
		ctx:      ctx,
		cancel:   cancel,
		jobQueue: make(chan Job, queueSize),
		inFlight: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("scheduler started", slog.Int("workers", s.workers))

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping scheduler")
	s.cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Enqueue never blocks the caller; the hand-off to a worker happens in the
// background.
func (s *Scheduler) Enqueue(_ context.Context, job Job) error {
	if s.ctx.Err() != nil {
		return ErrQueueStopped
	}

	s.inFlightMu.Lock()
	if _, exists := s.inFlight[job.ID]; exists {
		s.inFlightMu.Unlock()
		return ErrAlreadyQueued
	}
	s.inFlight[job.ID] = struct{}{}
	s.inFlightMu.Unlock()

	go func() {
		select {
		case s.jobQueue <- job:
		case <-s.ctx.Done():
			s.done(job.ID)
		}
	}()
	return nil
}

// Pending is the number of jobs queued or running.
func (s *Scheduler) Pending() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

func (s *Scheduler) done(jobID string) {
	s.inFlightMu.Lock()
	delete(s.inFlight, jobID)
	s.inFlightMu.Unlock()
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	log := s.log.With(slog.Int("worker", id))
	log.Debug("worker started")

	for {
		select {
		case <-s.ctx.Done():
			log.Debug("worker stopped")
			return
		case job := <-s.jobQueue:
			log.Info("processing broadcast", slog.String("job_id", job.ID), slog.Int64("broadcast_id", job.BroadcastID))
			if err := s.handler.Handle(s.ctx, job); err != nil {
				log.Error("broadcast job failed", slog.String("job_id", job.ID), sl.Err(err))
			}
			s.done(job.ID)
		}
	}
}
