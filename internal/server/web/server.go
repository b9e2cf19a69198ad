// Package web is the server-rendered browser frontend. Each browser gets a
// session cookie; the client state behind it (bearer token, preferences)
// lives in the configured storage under a per-session key prefix.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/limiter"
	"github.com/and161185/nimbly/internal/storage"
)

// Config wires a Server.
type Config struct {
	APIURL       string
	HTTPClient   *http.Client
	Store        storage.Store
	Limiter      limiter.Limiter
	CookieSecure bool
	Log          *zap.Logger
	// Now overrides the clock used for token expiry and greetings.
	Now func() time.Time
}

// Server serves the web frontend.
type Server struct {
	apiURL       string
	httpClient   *http.Client
	store        storage.Store
	limiter      limiter.Limiter
	cookieSecure bool
	log          *zap.Logger
	now          func() time.Time
	views        *views
}

// New constructs a Server.
func New(cfg Config) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	s := &Server{
		apiURL:       cfg.APIURL,
		httpClient:   cfg.HTTPClient,
		store:        cfg.Store,
		limiter:      cfg.Limiter,
		cookieSecure: cfg.CookieSecure,
		log:          cfg.Log,
		now:          cfg.Now,
		views:        v,
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.store == nil {
		s.store = storage.NewMemoryIdle(sessionCookieAge)
	}
	if s.limiter == nil {
		s.limiter = limiter.NewMemory(limiter.DefaultConfig)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s, nil
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(s.browserSession)

		r.Get("/", s.handleHome)
		r.Post("/theme", s.handleToggleTheme)
		r.Post("/prefs/sidebar", s.handleToggleSidebar)

		r.Get("/auth", s.handleAuthPage)
		r.Get("/auth/verify", s.handleVerify)
		r.Post("/auth/signout", s.handleSignOut)
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/auth/signin", s.handleSignIn)
			r.Post("/auth/signup", s.handleSignUp)
			r.Post("/auth/magic-link", s.handleMagicLink)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/receipts", s.handleReceipts)
			r.Get("/receipts/upload", s.handleUploadPage)
			r.Post("/receipts/upload", s.handleUpload)
			r.Get("/receipts/{id}", s.handleReceipt)
			r.Get("/insights", s.handleInsights)
			r.Get("/profile", s.handleProfile)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusNotFound, "notfound", "Not found", nil)
	})
	return r
}
