package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/BatmanBruc/arima-bot/types"
)

func (s *PostgresStore) CreateBroadcast(ctx context.Context, text string, initiatorID int64) (int64, error) {
	const op = "store.CreateBroadcast"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO broadcasts (text, initiator_id)
VALUES ($1, $2)
RETURNING id
`, text, initiatorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (s *PostgresStore) AddSentMessage(ctx context.Context, broadcastID, userID int64, messageID int) error {
	const op = "store.AddSentMessage"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
INSERT INTO sent_broadcast_messages (broadcast_id, user_id, message_id)
VALUES ($1, $2, $3)
ON CONFLICT (broadcast_id, user_id) DO UPDATE SET
  message_id = EXCLUDED.message_id
`, broadcastID, userID, messageID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) SentMessages(ctx context.Context, broadcastID int64) ([]types.SentBroadcastMessage, error) {
	const op = "store.SentMessages"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT broadcast_id, user_id, message_id
FROM sent_broadcast_messages
WHERE broadcast_id = $1
ORDER BY user_id
`, broadcastID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.SentBroadcastMessage, error) {
		var m types.SentBroadcastMessage
		err := row.Scan(&m.BroadcastID, &m.UserID, &m.MessageID)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return msgs, nil
}

// DeleteBroadcast removes the broadcast and, through the foreign key cascade,
// all of its receipts. deleted is false when the id is unknown.
func (s *PostgresStore) DeleteBroadcast(ctx context.Context, broadcastID int64) (bool, error) {
	const op = "store.DeleteBroadcast"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM broadcasts WHERE id = $1`, broadcastID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}
