package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is implemented by *pgxpool.Pool and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG counts attempts in fixed windows stored in the auth_limiter table.
type PG struct {
	pool Querier
	cfg  Config
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool Querier, cfg Config) *PG {
	return &PG{pool: pool, cfg: cfg.normalized()}
}

const pgHit = `
INSERT INTO auth_limiter (key, hits, window_start)
VALUES ($1, 1, now())
ON CONFLICT (key) DO UPDATE
SET
  hits = CASE WHEN now() - auth_limiter.window_start > $2::interval THEN 1 ELSE auth_limiter.hits + 1 END,
  window_start = CASE WHEN now() - auth_limiter.window_start > $2::interval THEN now() ELSE auth_limiter.window_start END
RETURNING hits`

// Allow implements Limiter.
func (l *PG) Allow(ctx context.Context, key string) (bool, error) {
	var hits int
	if err := l.pool.QueryRow(ctx, pgHit, key, l.cfg.Window).Scan(&hits); err != nil {
		return false, err
	}
	return hits <= l.cfg.Attempts, nil
}

// Prune removes windows that ended before olderThan ago.
func (l *PG) Prune(ctx context.Context, olderThan time.Duration) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM auth_limiter WHERE window_start < now() - $1::interval`, olderThan)
	return err
}
