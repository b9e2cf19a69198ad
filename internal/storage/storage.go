// Package storage defines the platform-scoped persistent key/value store
// that holds the session token and UI preferences.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store persists string values under fixed string keys.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key; removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

type scoped struct {
	base   Store
	prefix string
}

// Scoped returns a Store that prefixes every key with prefix.
func Scoped(base Store, prefix string) Store {
	return &scoped{base: base, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.base.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.base.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.base.Delete(ctx, s.prefix+key)
}
