// Package api is the HTTP client for the receipts backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/and161185/nimbly/internal/errs"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// TokenSource yields the current bearer token; an empty token means none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var (
		rdr         io.Reader
		contentType string
	)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, rdr, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Warn("read token", zap.Error(err))
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	reqID := ""
	if id, err := uuid.NewV4(); err == nil {
		reqID = id.String()
		req.Header.Set("X-Request-ID", reqID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Debug("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Error(err))
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: read body: %w", errs.ErrTransport, err)
	}
	c.log.Debug("request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", errs.ErrBadResponse, method, path, err)
	}
	return nil
}

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
	// Data is the decoded body, or nil when it was not JSON.
	Data any
}

func (e *Error) Error() string { return e.Message }

// Is makes errors.Is(err, errs.ErrUnauthorized) hold exactly for 401.
func (e *Error) Is(target error) bool {
	return target == errs.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

func newError(status int, raw []byte) *Error {
	e := &Error{Status: status}
	var data any
	if len(raw) > 0 && json.Unmarshal(raw, &data) == nil {
		e.Data = data
	}
	e.Message = messageFrom(e.Data)
	if e.Message == "" {
		e.Message = fmt.Sprintf("Request failed with status %d", status)
	}
	return e
}

// messageFrom picks the human message out of an error payload:
// detail (string, or the first FastAPI validation entry), message, error.message.
func messageFrom(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	switch d := m["detail"].(type) {
	case string:
		if d != "" {
			return d
		}
	case []any:
		if len(d) > 0 {
			if first, ok := d[0].(map[string]any); ok {
				if msg, ok := first["msg"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	if msg, ok := m["message"].(string); ok && msg != "" {
		return msg
	}
	if inner, ok := m["error"].(map[string]any); ok {
		if msg, ok := inner["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
