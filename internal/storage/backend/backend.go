// Package backend opens the storage.Store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/nimbly/internal/migrate"
	"github.com/and161185/nimbly/internal/storage"
	"github.com/and161185/nimbly/internal/storage/filestore"
	"github.com/and161185/nimbly/internal/storage/postgres"
	"github.com/and161185/nimbly/internal/storage/redisstore"
	"github.com/and161185/nimbly/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Kinds of storage backends.
const (
	File     = "file"
	SQLite   = "sqlite"
	Memory   = "memory"
	Redis    = "redis"
	Postgres = "postgres"
)

// Config selects and parameterizes a backend.
type Config struct {
	Kind       string
	Path       string // file: directory; sqlite: database file
	Passphrase string // file only
	Redis      redisstore.Config
	TTL        time.Duration // redis and memory: idle lifetime of a key
	DSN        string // postgres
}

// Open returns the configured store and a function releasing its resources.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))

	switch kind {
	case File, "":
		dir := cfg.Path
		if dir == "" {
			dir = filestore.DefaultDir()
		}
		s, err := filestore.Open(dir, cfg.Passphrase)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		log.Debug("storage ready", zap.String("kind", File), zap.String("dir", dir))
		return s, noop, nil

	case SQLite:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(filestore.DefaultDir(), "nimbly.db")
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, nil, fmt.Errorf("prepare sqlite dir: %w", err)
			}
		}
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Debug("storage ready", zap.String("kind", SQLite), zap.String("path", path))
		return s, s.Close, nil

	case Memory:
		ttl := cfg.TTL
		if ttl == 0 {
			ttl = redisstore.DefaultTTL
		}
		log.Debug("storage ready", zap.String("kind", Memory), zap.Duration("idle", ttl))
		return storage.NewMemoryIdle(ttl), noop, nil

	case Redis:
		client, err := redisstore.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		ttl := cfg.TTL
		if ttl == 0 {
			ttl = redisstore.DefaultTTL
		}
		log.Debug("storage ready", zap.String("kind", Redis), zap.String("addr", cfg.Redis.Addr))
		return redisstore.New(client, "nimbly:", ttl), client.Close, nil

	case Postgres:
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("postgres store: empty DSN")
		}
		applied, err := migrate.Up(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate up: %w", err)
		}
		logSchema(log, applied)
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		log.Debug("storage ready", zap.String("kind", Postgres))
		return postgres.NewKVStore(db), func() error { db.Close(); return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Kind)
}
