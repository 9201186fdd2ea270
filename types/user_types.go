package types

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Level int

const (
	LevelFree     Level = 0
	LevelStandard Level = 1
	LevelPremium  Level = 2
	LevelAdmin    Level = 3
)

type User struct {
	UserID          int64
	DisplayName     string
	Level           Level
	SubscriptionEnd *time.Time
	IsBlocked       bool
	LastModel       string
	SystemPrompt    *string
	Temperature     *float64
	CreatedAt       time.Time
}

// Expired reports whether a paid level outlived its window. Indefinite grants never expire.
func (u *User) Expired(now time.Time) bool {
	return u.Level > LevelFree && u.SubscriptionEnd != nil && !u.SubscriptionEnd.After(now)
}

type RegistrationStats struct {
	Today      int
	Yesterday  int
	Last7Days  int
	Last30Days int
}

type UserStore interface {
	AddUser(ctx context.Context, userID int64, displayName string) (created bool, err error)
	GetUser(ctx context.Context, userID int64) (*User, error)
	FindByDisplayName(ctx context.Context, name string) (*User, error)

	SetSubscription(ctx context.Context, userID int64, level Level, expiresAt *time.Time) error
	ExpireSubscription(ctx context.Context, userID int64, now time.Time) (bool, error)
	SetBlocked(ctx context.Context, userID int64, blocked bool) error
	SetLastModel(ctx context.Context, userID int64, model string) error
	SetSystemPrompt(ctx context.Context, userID int64, prompt *string) error
	SetTemperature(ctx context.Context, userID int64, temperature *float64) error

	ListUserIDs(ctx context.Context, excludeBlocked bool) ([]int64, error)
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	LevelStats(ctx context.Context) (map[Level]int, error)
	RegistrationStats(ctx context.Context, now time.Time, loc *time.Location) (RegistrationStats, error)
	ResetExpired(ctx context.Context, now time.Time) (int64, error)
	ResetAllSubscriptions(ctx context.Context, exclude []int64) (int64, error)
}

type RequestStore interface {
	AddRequest(ctx context.Context, userID int64, model string, at time.Time) error
	CountRequests(ctx context.Context, userID int64, from, to time.Time) (int, error)
}
