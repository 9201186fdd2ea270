// Package access derives what a user may do: effective subscription level,
// daily request limit, block status and the quota gate in front of the model API.
package access

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BatmanBruc/arima-bot/types"
)

type UserReader interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	ExpireSubscription(ctx context.Context, userID int64, now time.Time) (bool, error)
}

type LimitTable interface {
	DailyLimit(level types.Level) (limit int, unlimited bool)
}

// Access is a point-in-time view of one user's rights.
type Access struct {
	UserID    int64
	Level     types.Level
	Limit     int
	Unlimited bool
	Blocked   bool
	Admin     bool
}

type Policy struct {
	users  UserReader
	limits LimitTable
	admins map[int64]struct{}
	now    func() time.Time
}

func NewPolicy(users UserReader, limits LimitTable, adminIDs []int64) *Policy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Policy{
		users:  users,
		limits: limits,
		admins: admins,
		now:    time.Now,
	}
}

func (p *Policy) IsAdmin(userID int64) bool {
	_, ok := p.admins[userID]
	return ok
}

func (p *Policy) AdminIDs() []int64 {
	ids := make([]int64, 0, len(p.admins))
	for id := range p.admins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EffectiveLevel returns LevelAdmin for configured administrators and the
// stored level otherwise. An expired paid level is reset in the store and
// reported as free. Unknown users are free.
func (p *Policy) EffectiveLevel(ctx context.Context, userID int64) (types.Level, error) {
	if p.IsAdmin(userID) {
		return types.LevelAdmin, nil
	}
	u, err := p.load(ctx, userID)
	if err != nil || u == nil {
		return types.LevelFree, err
	}
	return u.Level, nil
}

func (p *Policy) DailyLimit(level types.Level) (int, bool) {
	if level == types.LevelAdmin {
		return 0, true
	}
	return p.limits.DailyLimit(level)
}

// IsBlocked never consults the store for administrators.
func (p *Policy) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	if p.IsAdmin(userID) {
		return false, nil
	}
	u, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("access.IsBlocked: %w", err)
	}
	return u.IsBlocked, nil
}

// Snapshot resolves level, limit and block status with a single store read.
func (p *Policy) Snapshot(ctx context.Context, userID int64) (Access, error) {
	a := Access{UserID: userID}
	if p.IsAdmin(userID) {
		a.Admin = true
		a.Level = types.LevelAdmin
		a.Unlimited = true
		return a, nil
	}

	u, err := p.load(ctx, userID)
	if err != nil {
		return Access{}, err
	}
	if u != nil {
		a.Level = u.Level
		a.Blocked = u.IsBlocked
	}
	a.Limit, a.Unlimited = p.DailyLimit(a.Level)
	return a, nil
}

// load reads the user and applies lazy expiry. A missing user yields nil.
func (p *Policy) load(ctx context.Context, userID int64) (*types.User, error) {
	const op = "access.load"

	u, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := p.now()
	if u.Expired(now) {
		if _, err := p.users.ExpireSubscription(ctx, userID, now); err != nil {
			return nil, fmt.Errorf("%s: expire: %w", op, err)
		}
		u.Level = types.LevelFree
		u.SubscriptionEnd = nil
	}
	return u, nil
}
