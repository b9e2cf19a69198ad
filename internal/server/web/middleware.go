package web

import (
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/api"
	"github.com/and161185/nimbly/internal/prefs"
	"github.com/and161185/nimbly/internal/service"
	"github.com/and161185/nimbly/internal/session"
	"github.com/and161185/nimbly/internal/storage"
)

// SessionCookie names the cookie carrying the browser session id.
const SessionCookie = "nimbly_sid"

// Logging logs one line per request; no bodies, no cookies.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", r.RemoteAddr),
			)
		})
	}
}

// Recover turns a handler panic into a 500.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// browserSession issues the session cookie and attaches the browser bundle.
func (s *Server) browserSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			if id, err := ulid.ParseStrict(c.Value); err == nil {
				sid = id.String()
			}
		}
		if sid == "" {
			sid = ulid.Make().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.cookieSecure,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int(sessionCookieAge / time.Second),
			})
		}
		next.ServeHTTP(w, r.WithContext(withBrowser(r.Context(), s.newBrowser(sid))))
	})
}

const sessionCookieAge = 30 * 24 * time.Hour

func (s *Server) newBrowser(sid string) *browser {
	store := storage.Scoped(s.store, "sess:"+sid+":")
	tokens := session.NewTokenStore(store)
	log := s.log.With(zap.String("sid", sid))
	client := api.New(s.apiURL, tokens, api.WithHTTPClient(s.httpClient), api.WithLogger(log))
	validator := session.NewValidator(tokens, log)
	if s.now != nil {
		validator = validator.WithClock(s.now)
	}
	return &browser{
		sid:       sid,
		validator: validator,
		guard:     session.NewGuard(validator, tokens, log),
		auth:      service.NewAuth(client, tokens, log),
		receipts:  service.NewReceipts(client),
		prefs:     prefs.New(store),
	}
}

// requireUser runs the route guard on every protected request.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := browserFrom(r.Context()).guard.Require(r.Context())
		if err != nil {
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	})
}

// rateLimit throttles submissions per browser session and per client
// address; a client dropping its cookie still hits the address budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := browserFrom(r.Context())
		ok := true
		for _, key := range []string{"ip:" + clientIP(r), "sid:" + b.sid} {
			allowed, err := s.limiter.Allow(r.Context(), key)
			if err != nil {
				// fail open
				s.log.Warn("rate limiter", zap.String("key", key), zap.Error(err))
				continue
			}
			ok = ok && allowed
		}
		if !ok {
			s.renderAuth(w, r, http.StatusTooManyRequests, authView{
				Mode:  modeFrom(r),
				Error: "Too many attempts. Please wait a minute and try again.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address without its port. RealIP has already
// replaced RemoteAddr when a proxy header is present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
