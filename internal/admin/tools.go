package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

type Stats struct {
	Total         int
	ByLevel       map[types.Level]int
	Registrations types.RegistrationStats
	Expired       int64
}

// Stats normalizes expired subscriptions first so the per-level counts are
// current.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	const op = "admin.Stats"

	now := s.now()
	expired, err := s.users.ResetExpired(ctx, now)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	byLevel, err := s.users.LevelStats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	reg, err := s.users.RegistrationStats(ctx, now, s.cfg.Location)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	if expired > 0 {
		s.log.Info("expired subscriptions reset", slog.Int64("count", expired))
	}
	return Stats{Total: total, ByLevel: byLevel, Registrations: reg, Expired: expired}, nil
}

// UserPage returns the user on a 1-based page of one card each, with the
// total number of pages. A page past the end yields ErrUserNotFound.
func (s *Service) UserPage(ctx context.Context, page int) (*types.User, int, error) {
	total, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("admin.UserPage: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}
	if page < 1 || page > total {
		return nil, total, ErrUserNotFound
	}
	users, err := s.users.ListUsers(ctx, page-1, 1)
	if err != nil {
		return nil, total, fmt.Errorf("admin.UserPage: %w", err)
	}
	if len(users) == 0 {
		return nil, total, ErrUserNotFound
	}
	return &users[0], total, nil
}

// ResetAll drops every non-administrator to the free level.
func (s *Service) ResetAll(ctx context.Context) (int64, error) {
	n, err := s.users.ResetAllSubscriptions(ctx, s.policy.AdminIDs())
	if err != nil {
		return 0, fmt.Errorf("admin.ResetAll: %w", err)
	}
	s.log.Warn("all subscriptions reset", slog.Int64("count", n))
	return n, nil
}

type Check struct {
	Name   string
	OK     bool
	Detail string
}

// SelfTest exercises grant, block, unblock and revoke against the
// administrator's own row and then restores it.
func (s *Service) SelfTest(ctx context.Context, adminID int64) (checks []Check, err error) {
	orig, err := s.users.GetUser(ctx, adminID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("admin.SelfTest: %w", err)
	}

	defer func() {
		if rerr := s.users.SetSubscription(ctx, adminID, orig.Level, orig.SubscriptionEnd); rerr != nil {
			s.log.Error("self-test restore failed", slog.Int64("user_id", adminID), slog.String("field", "subscription"), sl.Err(rerr))
			err = errors.Join(err, rerr)
		}
		if rerr := s.users.SetBlocked(ctx, adminID, orig.IsBlocked); rerr != nil {
			s.log.Error("self-test restore failed", slog.Int64("user_id", adminID), slog.String("field", "blocked"), sl.Err(rerr))
			err = errors.Join(err, rerr)
		}
	}()

	if err := s.users.SetSubscription(ctx, adminID, types.LevelStandard, nil); err != nil {
		return checks, err
	}
	u, err := s.users.GetUser(ctx, adminID)
	if err != nil {
		return checks, err
	}
	checks = append(checks, levelCheck("Выдача подписки Standard", u.Level, types.LevelStandard))

	if err := s.users.SetBlocked(ctx, adminID, true); err != nil {
		return checks, err
	}
	if u, err = s.users.GetUser(ctx, adminID); err != nil {
		return checks, err
	}
	checks = append(checks, Check{Name: "Блокировка", OK: u.IsBlocked})

	if err := s.users.SetBlocked(ctx, adminID, false); err != nil {
		return checks, err
	}
	if u, err = s.users.GetUser(ctx, adminID); err != nil {
		return checks, err
	}
	checks = append(checks, Check{Name: "Разблокировка", OK: !u.IsBlocked})

	if err := s.users.SetSubscription(ctx, adminID, types.LevelFree, nil); err != nil {
		return checks, err
	}
	if u, err = s.users.GetUser(ctx, adminID); err != nil {
		return checks, err
	}
	checks = append(checks, levelCheck("Сброс подписки до Free", u.Level, types.LevelFree))

	effective, err := s.policy.EffectiveLevel(ctx, adminID)
	if err != nil {
		return checks, err
	}
	c := Check{Name: "Уровень доступа админа", OK: effective == types.LevelAdmin}
	c.Detail = fmt.Sprintf("эффективный уровень %d", effective)
	if !c.OK {
		c.Detail += fmt.Sprintf(", ожидался %d", types.LevelAdmin)
	}
	checks = append(checks, c)

	s.log.Info("self-test finished", slog.Int64("user_id", adminID), slog.Int("checks", len(checks)))
	return checks, nil
}

func levelCheck(name string, got, want types.Level) Check {
	c := Check{Name: name, OK: got == want}
	if !c.OK {
		c.Detail = fmt.Sprintf("уровень %d", got)
	}
	return c
}
