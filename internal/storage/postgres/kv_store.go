package postgres

import (
	"context"
	"errors"

	"github.com/and161185/nimbly/internal/storage"
	"github.com/jackc/pgx/v5"
)

// KVStore implements storage.Store on the kv table.
type KVStore struct{ db *DB }

var _ storage.Store = (*KVStore)(nil)

// NewKVStore constructs a kv store.
func NewKVStore(db *DB) *KVStore { return &KVStore{db: db} }

// Get selects a value by key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM kv WHERE key=$1`
	var v string
	if err := s.db.Pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// Set upserts a value.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO kv (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := s.db.Pool.Exec(ctx, q, key, value)
	return err
}

// Delete removes a key if present.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv WHERE key=$1`
	_, err := s.db.Pool.Exec(ctx, q, key)
	return err
}
