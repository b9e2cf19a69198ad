package web

import (
	"context"

	"github.com/and161185/nimbly/internal/model"
	"github.com/and161185/nimbly/internal/prefs"
	"github.com/and161185/nimbly/internal/service"
	"github.com/and161185/nimbly/internal/session"
)

type ctxKey string

const (
	browserKey ctxKey = "nimbly.browser"
	userKey    ctxKey = "nimbly.user"
)

// browser bundles the per-browser client state: everything is scoped to the
// browser's session id, so two browsers never see each other's token.
type browser struct {
	sid       string
	validator *session.Validator
	guard     *session.Guard
	auth      *service.Auth
	receipts  *service.Receipts
	prefs     *prefs.Prefs
}

func withBrowser(ctx context.Context, b *browser) context.Context {
	return context.WithValue(ctx, browserKey, b)
}

func browserFrom(ctx context.Context) *browser {
	b, _ := ctx.Value(browserKey).(*browser)
	return b
}

func withUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom returns the signed-in user placed by the guard middleware.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
