package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/and161185/nimbly/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Reasons a stored token is rejected.
var (
	ErrMalformedToken = errors.New("malformed session token")
	ErrExpiredToken   = errors.New("session token expired")
	ErrWrongTokenType = errors.New("not a session token")
)

// Validator decides whether the stored token describes a live session.
// It keeps no state between calls; every call re-reads the token store.
type Validator struct {
	tokens *TokenStore
	now    func() time.Time
	log    *zap.Logger
}

// NewValidator returns a Validator reading from tokens.
func NewValidator(tokens *TokenStore, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{tokens: tokens, now: time.Now, log: log}
}

// WithClock returns a copy of v using now as the current time.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	cp := *v
	cp.now = now
	return &cp
}

// IsAuthenticated reports whether a valid session token is stored.
func (v *Validator) IsAuthenticated(ctx context.Context) bool {
	u, err := v.CurrentUser(ctx)
	return err == nil && u != nil
}

// CurrentUser returns the user described by the stored token, or nil when
// there is no valid session. An expired, malformed or non-session token is
// cleared from the store. The returned error is only set for storage
// failures on the read path.
func (v *Validator) CurrentUser(ctx context.Context) (*model.User, error) {
	tok, ok, err := v.tokens.Get(ctx)
	if err != nil {
		v.log.Warn("read session token", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	claims, err := DecodeClaims(tok)
	if err == nil {
		err = v.check(claims)
	}
	if err != nil {
		v.log.Info("evicting session token", zap.Error(err))
		if cerr := v.tokens.Clear(ctx); cerr != nil {
			v.log.Warn("clear session token", zap.Error(cerr))
		}
		return nil, nil
	}

	return &model.User{Email: claims.Email, UserID: userID(claims)}, nil
}

func (v *Validator) check(c *model.Claims) error {
	if c.ExpiresAt != nil && c.ExpiresAt.Unix() < v.now().Unix() {
		return ErrExpiredToken
	}
	if c.Type != "" && c.Type != model.SessionTokenType {
		return ErrWrongTokenType
	}
	return nil
}

func userID(c *model.Claims) string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

var segmentParser = jwt.NewParser()

// DecodeClaims decodes the payload segment of token without verifying it.
// The token needs at least a header and a payload segment.
func DecodeClaims(token string) (*model.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, ErrMalformedToken
	}
	raw, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		// browsers' atob() tolerates the standard alphabet; so do we
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(parts[1], "="))
		if err != nil {
			return nil, errors.Join(ErrMalformedToken, err)
		}
	}
	// null, arrays and scalars decode without error but carry no claims
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformedToken
	}
	var c model.Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	return &c, nil
}
