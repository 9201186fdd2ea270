package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/BatmanBruc/arima-bot/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const queryTimeout = 5 * time.Second

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	const op = "store.NewPostgresStore"

	cfg, err := pgxpool.ParseConfig(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: migrations: %w", op, err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// runMigrations applies the embedded goose migrations. Every migration is
// additive and guarded with IF NOT EXISTS, so reruns on startup are no-ops.
func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

const userColumns = `user_id, username, subscription_level, subscription_end, is_blocked,
last_selected_model, system_prompt, temperature, created_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u         types.User
		username  *string
		level     int
		lastModel *string
	)
	err := row.Scan(&u.UserID, &username, &level, &u.SubscriptionEnd, &u.IsBlocked,
		&lastModel, &u.SystemPrompt, &u.Temperature, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	if username != nil {
		u.DisplayName = *username
	}
	if lastModel != nil {
		u.LastModel = *lastModel
	}
	u.Level = types.Level(level)
	return &u, nil
}

// AddUser registers a user on first sight and overwrites the display name on
// every later call, clearing it when the handle is gone. created reports
// whether the row was inserted.
func (s *PostgresStore) AddUser(ctx context.Context, userID int64, displayName string) (bool, error) {
	const op = "store.AddUser"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var created bool
	err := s.pool.QueryRow(ctx, `
INSERT INTO users (user_id, username)
VALUES ($1, NULLIF($2, ''))
ON CONFLICT (user_id) DO UPDATE SET
  username = EXCLUDED.username
RETURNING (xmax = 0)
`, userID, strings.TrimPrefix(strings.TrimSpace(displayName), "@")).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	const op = "store.GetUser"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) FindByDisplayName(ctx context.Context, name string) (*types.User, error) {
	const op = "store.FindByDisplayName"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE LOWER(username) = LOWER($1)
ORDER BY created_at DESC
LIMIT 1
`, name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) exec(ctx context.Context, op, sql string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) SetSubscription(ctx context.Context, userID int64, level types.Level, expiresAt *time.Time) error {
	return s.exec(ctx, "store.SetSubscription", `
UPDATE users SET subscription_level = $2, subscription_end = $3 WHERE user_id = $1
`, userID, int(level), expiresAt)
}

// ExpireSubscription resets a single row to the free level if its paid window
// has passed. The condition lives in the statement so a concurrent grant is
// never overwritten.
func (s *PostgresStore) ExpireSubscription(ctx context.Context, userID int64, now time.Time) (bool, error) {
	const op = "store.ExpireSubscription"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET subscription_level = 0, subscription_end = NULL
WHERE user_id = $1
  AND subscription_level > 0
  AND subscription_end IS NOT NULL
  AND subscription_end <= $2
`, userID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	return s.exec(ctx, "store.SetBlocked", `UPDATE users SET is_blocked = $2 WHERE user_id = $1`, userID, blocked)
}

func (s *PostgresStore) SetLastModel(ctx context.Context, userID int64, model string) error {
	return s.exec(ctx, "store.SetLastModel", `UPDATE users SET last_selected_model = NULLIF($2, '') WHERE user_id = $1`, userID, model)
}

func (s *PostgresStore) SetSystemPrompt(ctx context.Context, userID int64, prompt *string) error {
	return s.exec(ctx, "store.SetSystemPrompt", `UPDATE users SET system_prompt = $2 WHERE user_id = $1`, userID, prompt)
}

func (s *PostgresStore) SetTemperature(ctx context.Context, userID int64, temperature *float64) error {
	return s.exec(ctx, "store.SetTemperature", `UPDATE users SET temperature = $2 WHERE user_id = $1`, userID, temperature)
}

func (s *PostgresStore) ListUserIDs(ctx context.Context, excludeBlocked bool) ([]int64, error) {
	const op = "store.ListUserIDs"
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT user_id FROM users
WHERE NOT ($1 AND is_blocked)
ORDER BY created_at, user_id
`, excludeBlocked)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, offset, limit int) ([]types.User, error) {
	const op = "store.ListUsers"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY created_at, user_id
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	const op = "store.CountUsers"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) LevelStats(ctx context.Context) (map[types.Level]int, error) {
	const op = "store.LevelStats"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT subscription_level, COUNT(*) FROM users GROUP BY subscription_level`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	stats := make(map[types.Level]int)
	for rows.Next() {
		var level, count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		stats[types.Level(level)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (s *PostgresStore) RegistrationStats(ctx context.Context, now time.Time, loc *time.Location) (types.RegistrationStats, error) {
	const op = "store.RegistrationStats"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)
	week := today.AddDate(0, 0, -6)
	month := today.AddDate(0, 0, -29)

	var st types.RegistrationStats
	err := s.pool.QueryRow(ctx, `
SELECT
  COUNT(*) FILTER (WHERE created_at >= $1),
  COUNT(*) FILTER (WHERE created_at >= $2 AND created_at < $1),
  COUNT(*) FILTER (WHERE created_at >= $3),
  COUNT(*) FILTER (WHERE created_at >= $4)
FROM users
`, today, yesterday, week, month).Scan(&st.Today, &st.Yesterday, &st.Last7Days, &st.Last30Days)
	if err != nil {
		return st, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

func (s *PostgresStore) ResetExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "store.ResetExpired"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET subscription_level = 0, subscription_end = NULL
WHERE subscription_level > 0
  AND subscription_end IS NOT NULL
  AND subscription_end <= $1
`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ResetAllSubscriptions(ctx context.Context, exclude []int64) (int64, error) {
	const op = "store.ResetAllSubscriptions"
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if exclude == nil {
		exclude = []int64{}
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE users
SET subscription_level = 0, subscription_end = NULL
WHERE subscription_level > 0
  AND NOT (user_id = ANY($1))
`, exclude)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}
