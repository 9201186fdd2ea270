package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) AddRequest(ctx context.Context, userID int64, model string, at time.Time) error {
	const op = "store.AddRequest"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
INSERT INTO requests (user_id, model, created_at)
VALUES ($1, $2, $3)
`, userID, model, at)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountRequests counts log entries in the half-open interval [from, to).
func (s *PostgresStore) CountRequests(ctx context.Context, userID int64, from, to time.Time) (int, error) {
	const op = "store.CountRequests"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM requests
WHERE user_id = $1
  AND created_at >= $2
  AND created_at < $3
`, userID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
