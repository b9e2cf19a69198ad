// Package service contains the application flows behind every user surface:
// authentication and the receipts/insights views.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/and161185/nimbly/internal/errs"
	"github.com/and161185/nimbly/internal/model"
	"github.com/and161185/nimbly/internal/session"
	"go.uber.org/zap"
)

// MinPasswordLen is the shortest password accepted at sign-up.
const MinPasswordLen = 8

// AuthAPI is the part of the backend client the auth flows need.
type AuthAPI interface {
	SignUp(ctx context.Context, email, password string) (*model.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*model.AuthResult, error)
	RequestMagicLink(ctx context.Context, email string) (*model.MagicLinkSent, error)
	VerifyMagicLink(ctx context.Context, token string) (*model.AuthResult, error)
}

// Auth runs sign-in, sign-up, magic link and sign-out flows. The token store
// is written only after a fully successful backend response.
type Auth struct {
	api    AuthAPI
	tokens *session.TokenStore
	log    *zap.Logger

	// held while a flow is in flight; a second caller gets errs.ErrBusy
	inflight sync.Mutex
}

// NewAuth constructs Auth.
func NewAuth(api AuthAPI, tokens *session.TokenStore, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{api: api, tokens: tokens, log: log}
}

// SignIn authenticates with email and password and stores the session token.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*model.AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("Please fill in all fields")
	}
	return a.exchange(ctx, "signin", func() (*model.AuthResult, error) {
		return a.api.SignIn(ctx, email, password)
	})
}

// SignUp creates an account and stores the session token.
func (a *Auth) SignUp(ctx context.Context, email, password, confirm string) (*model.AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || confirm == "" {
		return nil, invalid("Please fill in all fields")
	}
	if len([]rune(password)) < MinPasswordLen {
		return nil, invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLen))
	}
	if password != confirm {
		return nil, invalid("Passwords do not match")
	}
	return a.exchange(ctx, "signup", func() (*model.AuthResult, error) {
		return a.api.SignUp(ctx, email, password)
	})
}

// RequestMagicLink asks the backend to email a sign-in link. Nothing is stored.
func (a *Auth) RequestMagicLink(ctx context.Context, email string) (*model.MagicLinkSent, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("Please enter your email")
	}
	if !a.inflight.TryLock() {
		return nil, errs.ErrBusy
	}
	defer a.inflight.Unlock()

	res, err := a.api.RequestMagicLink(ctx, email)
	if err != nil {
		a.log.Info("magic link request failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

// VerifyMagicLink exchanges the token from an emailed link for a session.
func (a *Auth) VerifyMagicLink(ctx context.Context, token string) (*model.AuthResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invalid("Invalid or missing magic link token")
	}
	return a.exchange(ctx, "verify", func() (*model.AuthResult, error) {
		return a.api.VerifyMagicLink(ctx, token)
	})
}

// SignOut forgets the local session. The backend keeps no session state the
// client could revoke, so this never calls it; the token stays valid on the
// server until it expires. Calling SignOut without a session is a no-op.
func (a *Auth) SignOut(ctx context.Context) error {
	return a.tokens.Clear(ctx)
}

func (a *Auth) exchange(ctx context.Context, op string, call func() (*model.AuthResult, error)) (*model.AuthResult, error) {
	if !a.inflight.TryLock() {
		return nil, errs.ErrBusy
	}
	defer a.inflight.Unlock()

	res, err := call()
	if err != nil {
		a.log.Info("auth failed", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	if res == nil || res.SessionToken == "" {
		return nil, fmt.Errorf("%w: %s returned no session token", errs.ErrBadResponse, op)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.tokens.Set(ctx, res.SessionToken); err != nil {
		return nil, fmt.Errorf("store session token: %w", err)
	}
	a.log.Debug("signed in", zap.String("op", op), zap.String("user_id", res.UserID))
	return res, nil
}
