package session

import (
	"context"
	"errors"

	"github.com/and161185/nimbly/internal/storage"
)

// TokenKey is the storage key of the bearer token.
const TokenKey = "auth_token"

// TokenStore persists the single bearer token.
type TokenStore struct {
	store storage.Store
}

// NewTokenStore returns a TokenStore over store.
func NewTokenStore(store storage.Store) *TokenStore {
	return &TokenStore{store: store}
}

// Set replaces the stored token.
func (t *TokenStore) Set(ctx context.Context, token string) error {
	return t.store.Set(ctx, TokenKey, token)
}

// Get returns the stored token; ok is false when none is stored.
func (t *TokenStore) Get(ctx context.Context) (token string, ok bool, err error) {
	v, err := t.store.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && v == "") {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Clear removes the token. Clearing an empty store is not an error.
func (t *TokenStore) Clear(ctx context.Context) error {
	return t.store.Delete(ctx, TokenKey)
}

// Token implements the API client's token source.
func (t *TokenStore) Token(ctx context.Context) (string, error) {
	tok, _, err := t.Get(ctx)
	return tok, err
}
