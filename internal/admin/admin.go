// Package admin implements the administrator actions on user records:
// subscription grants and revocations, blocking, search, statistics and the
// bulk reset tools.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BatmanBruc/arima-bot/internal/messages"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/types"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrProtectedAdmin = errors.New("action is not allowed on an administrator")
	ErrInvalidLevel   = errors.New("invalid subscription level")
	ErrBadInput       = errors.New("bad input")
)

type Policy interface {
	IsAdmin(userID int64) bool
	AdminIDs() []int64
	EffectiveLevel(ctx context.Context, userID int64) (types.Level, error)
}

type Catalog interface {
	ValidLevel(level int) bool
	LevelName(level types.Level) string
}

// Notifier delivers a message to the affected user.
type Notifier interface {
	SendHTML(ctx context.Context, chatID int64, text string) (int, error)
}

// Target is a resolved user together with the text the administrator typed.
type Target struct {
	UserID int64
	Input  string
	User   *types.User
}

type Outcome struct {
	Target    Target
	Level     types.Level
	ExpiresAt *time.Time
	Blocked   bool
}

type Config struct {
	Validity time.Duration
	Location *time.Location
}

type Service struct {
	users    types.UserStore
	policy   Policy
	catalog  Catalog
	notifier Notifier
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

func NewService(users types.UserStore, policy Policy, catalog Catalog, notifier Notifier, cfg Config, log *slog.Logger) *Service {
	if cfg.Validity <= 0 {
		cfg.Validity = 30 * 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		users:    users,
		policy:   policy,
		catalog:  catalog,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With(slog.String("component", "admin")),
		now:      time.Now,
	}
}

// ResolveTarget accepts a numeric id or an @handle. Both must name a user
// already known to the store.
func (s *Service) ResolveTarget(ctx context.Context, input string) (Target, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Target{}, ErrBadInput
	}

	var (
		u   *types.User
		err error
	)
	if strings.HasPrefix(input, "@") {
		handle := strings.TrimPrefix(input, "@")
		if handle == "" {
			return Target{Input: input}, ErrUserNotFound
		}
		u, err = s.users.FindByDisplayName(ctx, handle)
	} else {
		id, perr := strconv.ParseInt(input, 10, 64)
		if perr != nil {
			return Target{Input: input}, ErrUserNotFound
		}
		u, err = s.users.GetUser(ctx, id)
	}
	if errors.Is(err, types.ErrNotFound) {
		return Target{Input: input}, ErrUserNotFound
	}
	if err != nil {
		return Target{Input: input}, fmt.Errorf("admin.ResolveTarget: %w", err)
	}
	return Target{UserID: u.UserID, Input: input, User: u}, nil
}

// ParseGrant splits "<target> <level>".
func ParseGrant(input string) (target string, level int, err error) {
	parts := strings.Fields(input)
	if len(parts) != 2 {
		return "", 0, ErrBadInput
	}
	level, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, ErrBadInput
	}
	return parts[0], level, nil
}

// Grant sets the level from "<target> <level>". Paid levels run for the
// validity window from now; repeating a grant restarts the window.
func (s *Service) Grant(ctx context.Context, input string) (Outcome, error) {
	raw, level, err := ParseGrant(input)
	if err != nil {
		return Outcome{}, err
	}
	if !s.catalog.ValidLevel(level) {
		return Outcome{}, ErrInvalidLevel
	}
	target, err := s.ResolveTarget(ctx, raw)
	if err != nil {
		return Outcome{Target: target}, err
	}

	lvl := types.Level(level)
	var expires *time.Time
	if lvl > types.LevelFree {
		t := s.now().UTC().Add(s.cfg.Validity)
		expires = &t
	}
	if err := s.users.SetSubscription(ctx, target.UserID, lvl, expires); err != nil {
		return Outcome{Target: target}, fmt.Errorf("admin.Grant: %w", err)
	}

	name := s.catalog.LevelName(lvl)
	s.log.Info("subscription granted", slog.Int64("user_id", target.UserID), slog.String("level", name))
	s.notify(ctx, target.UserID, messages.GrantNotice(name))
	return Outcome{Target: target, Level: lvl, ExpiresAt: expires}, nil
}

func (s *Service) Revoke(ctx context.Context, input string) (Outcome, error) {
	target, err := s.ResolveTarget(ctx, input)
	if err != nil {
		return Outcome{Target: target}, err
	}
	if s.policy.IsAdmin(target.UserID) {
		return Outcome{Target: target}, ErrProtectedAdmin
	}
	if err := s.users.SetSubscription(ctx, target.UserID, types.LevelFree, nil); err != nil {
		return Outcome{Target: target}, fmt.Errorf("admin.Revoke: %w", err)
	}

	s.log.Info("subscription revoked", slog.Int64("user_id", target.UserID))
	s.notify(ctx, target.UserID, messages.RevokeNotice())
	return Outcome{Target: target, Level: types.LevelFree}, nil
}

func (s *Service) Block(ctx context.Context, input string) (Outcome, error) {
	return s.setBlocked(ctx, input, true)
}

func (s *Service) Unblock(ctx context.Context, input string) (Outcome, error) {
	return s.setBlocked(ctx, input, false)
}

func (s *Service) setBlocked(ctx context.Context, input string, blocked bool) (Outcome, error) {
	target, err := s.ResolveTarget(ctx, input)
	if err != nil {
		return Outcome{Target: target}, err
	}
	if blocked && s.policy.IsAdmin(target.UserID) {
		return Outcome{Target: target}, ErrProtectedAdmin
	}
	if err := s.users.SetBlocked(ctx, target.UserID, blocked); err != nil {
		return Outcome{Target: target}, fmt.Errorf("admin.setBlocked: %w", err)
	}

	s.log.Info("block status changed", slog.Int64("user_id", target.UserID), slog.Bool("blocked", blocked))
	s.notify(ctx, target.UserID, messages.BlockNotice(blocked))
	return Outcome{Target: target, Blocked: blocked}, nil
}

func (s *Service) Search(ctx context.Context, input string) (*types.User, error) {
	target, err := s.ResolveTarget(ctx, input)
	if err != nil {
		return nil, err
	}
	return target.User, nil
}

// notify is best effort: the action has already been applied.
func (s *Service) notify(ctx context.Context, userID int64, text string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.SendHTML(ctx, userID, text); err != nil {
		s.log.Debug("failed to notify user", slog.Int64("user_id", userID), sl.Err(err))
	}
}

func (s *Service) LevelName(level types.Level) string {
	return s.catalog.LevelName(level)
}

func (s *Service) Now() time.Time {
	return s.now()
}
