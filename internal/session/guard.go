package session

import (
	"context"
	"errors"

	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/model"
	"go.uber.org/zap"
)

// Guard protects views that need a signed-in user.
type Guard struct {
	validator *Validator
	tokens    *TokenStore
	log       *zap.Logger
}

// NewGuard returns a Guard.
func NewGuard(validator *Validator, tokens *TokenStore, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{validator: validator, tokens: tokens, log: log}
}

// Require returns the current user or errs.ErrUnauthenticated. It is meant
// to run every time a protected view is entered; nothing is cached.
func (g *Guard) Require(ctx context.Context) (*model.User, error) {
	u, err := g.validator.CurrentUser(ctx)
	if err != nil || u == nil {
		return nil, errs.ErrUnauthenticated
	}
	return u, nil
}

// Observe inspects an error returned by the API client. A 401 evicts the
// stored token and is reported as errs.ErrUnauthenticated; anything else is
// returned unchanged.
func (g *Guard) Observe(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, errs.ErrUnauthorized) {
		return err
	}
	if cerr := g.tokens.Clear(ctx); cerr != nil {
		g.log.Warn("clear token after 401", zap.Error(cerr))
	}
	return errors.Join(errs.ErrUnauthenticated, err)
}
