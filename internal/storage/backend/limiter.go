package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/nimbly/internal/limiter"
	"github.com/and161185/nimbly/internal/migrate"
	"github.com/and161185/nimbly/internal/storage/postgres"
	"github.com/and161185/nimbly/internal/storage/redisstore"
	"go.uber.org/zap"
)

// OpenLimiter returns a limiter whose state lives next to the configured
// store: shared backends get a shared limiter, local ones an in-process one.
func OpenLimiter(ctx context.Context, cfg Config, lc limiter.Config, log *zap.Logger) (limiter.Limiter, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case Redis:
		client, err := redisstore.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("limiter ready", zap.String("kind", Redis))
		return limiter.NewRedis(client, "nimbly:rl:", lc), client.Close, nil

	case Postgres:
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("postgres limiter: empty DSN")
		}
		applied, err := migrate.Up(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		logSchema(log, applied)
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres limiter: %w", err)
		}
		log.Debug("limiter ready", zap.String("kind", Postgres))
		return limiter.NewPG(db.Pool, lc), func() error { db.Close(); return nil }, nil
	}

	log.Debug("limiter ready", zap.String("kind", Memory))
	return limiter.NewMemory(lc), noop, nil
}

func logSchema(log *zap.Logger, applied []int64) {
	known, err := migrate.Versions()
	if err != nil {
		log.Warn("list migrations", zap.Error(err))
		return
	}
	log.Info("schema migrated", zap.Int64s("applied", applied), zap.Int64s("known", known))
}
