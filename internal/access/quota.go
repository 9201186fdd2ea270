package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BatmanBruc/arima-bot/internal/metrics"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

var (
	ErrLimitReached = errors.New("daily limit reached")
	ErrBlocked      = errors.New("user is blocked")
)

// Counter is the only writer of request log entries.
type Counter struct {
	log types.RequestStore
	loc *time.Location
	now func() time.Time
	lg  *slog.Logger
}

func NewCounter(log types.RequestStore, loc *time.Location, logger *slog.Logger) *Counter {
	if loc == nil {
		loc = time.UTC
	}
	return &Counter{
		log: log,
		loc: loc,
		now: time.Now,
		lg:  logger,
	}
}

// DayBounds returns the half-open interval of the calendar day containing t.
func (c *Counter) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

func (c *Counter) RequestsToday(ctx context.Context, userID int64) (int, error) {
	from, to := c.DayBounds(c.now())
	n, err := c.log.CountRequests(ctx, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("access.RequestsToday: %w", err)
	}
	return n, nil
}

// Record appends one entry. The error is logged and counted before it is
// returned so callers may ignore it.
func (c *Counter) Record(ctx context.Context, userID int64, model string) error {
	if err := c.log.AddRequest(ctx, userID, model, c.now()); err != nil {
		metrics.RequestLogFailures.Inc()
		c.lg.Error("failed to record request",
			slog.Int64("user_id", userID),
			slog.String("model", model),
			sl.Err(err),
		)
		return err
	}
	return nil
}

// Decision is what the gate saw when it let a request through or stopped it.
type Decision struct {
	Access
	Used int
}

func (d Decision) Remaining() int {
	if d.Unlimited {
		return -1
	}
	if d.Used >= d.Limit {
		return 0
	}
	return d.Limit - d.Used
}

// Gate must be consulted before every model call.
type Gate struct {
	policy  *Policy
	counter *Counter
}

func NewGate(policy *Policy, counter *Counter) *Gate {
	return &Gate{policy: policy, counter: counter}
}

// Check fails closed: any store error stops the request.
func (g *Gate) Check(ctx context.Context, userID int64) (Decision, error) {
	a, err := g.policy.Snapshot(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Access: a}
	if a.Admin {
		return d, nil
	}
	if a.Blocked {
		return d, ErrBlocked
	}

	used, err := g.counter.RequestsToday(ctx, userID)
	if err != nil {
		return d, err
	}
	d.Used = used
	if !a.Unlimited && used >= a.Limit {
		metrics.QuotaRejections.Inc()
		return d, ErrLimitReached
	}
	return d, nil
}

// Record skips administrators, whose requests are never logged.
func (g *Gate) Record(ctx context.Context, userID int64, model string) {
	if g.policy.IsAdmin(userID) {
		return
	}
	_ = g.counter.Record(ctx, userID, model)
}

func (g *Gate) Policy() *Policy {
	return g.policy
}

func (g *Gate) Counter() *Counter {
	return g.counter
}
