package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/BatmanBruc/arima-bot/types"
)

// RedisSessionStore keeps one conversational session per user. Every save
// refreshes the TTL, so abandoned flows expire on their own.
type RedisSessionStore struct {
	client *RedisClient
	ttl    time.Duration
}

func NewRedisSessionStore(redisClient *RedisClient, ttlHours int) *RedisSessionStore {
	ttl := time.Duration(ttlHours) * time.Hour
	if ttlHours <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSessionStore{
		client: redisClient,
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) key(userID int64) string {
	return s.client.generateKey("session", strconv.FormatInt(userID, 10))
}

func (s *RedisSessionStore) GetSession(ctx context.Context, userID int64) (*types.Session, error) {
	var session types.Session
	if err := s.client.Get(ctx, s.key(userID), &session); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return &types.Session{UserID: userID, State: types.StateIdle}, nil
		}
		return nil, err
	}
	session.UserID = userID
	return &session, nil
}

func (s *RedisSessionStore) SaveSession(ctx context.Context, session *types.Session) error {
	session.UpdatedAt = time.Now().UTC()
	return s.client.Set(ctx, s.key(session.UserID), session, s.ttl)
}

func (s *RedisSessionStore) ClearSession(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID))
}
