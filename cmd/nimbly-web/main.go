// Command nimbly-web serves the Nimbly browser frontend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/config"
	"github.com/and161185/nimbly/internal/limiter"
	"github.com/and161185/nimbly/internal/logger"
	"github.com/and161185/nimbly/internal/server/web"
	"github.com/and161185/nimbly/internal/storage/backend"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, opens storage and serves until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load(config.WebDefaults)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.HTTPAddr, "listen address")
	apiURL := flag.String("api", cfg.APIURL, "backend base URL")
	storeKind := flag.String("store", cfg.Storage.Kind, "session storage: memory, redis, postgres, sqlite, file")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	attempts := flag.Int("auth-attempts", limiter.DefaultConfig.Attempts, "auth submissions allowed per window and browser")
	window := flag.Duration("auth-window", limiter.DefaultConfig.Window, "auth rate limit window")
	flag.Parse()
	cfg.Storage.Kind = *storeKind

	log, err := logger.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
		zap.String("api", *apiURL),
		zap.String("store", cfg.Storage.Kind),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	lim, closeLim, err := backend.OpenLimiter(ctx, cfg.Storage, limiter.Config{Attempts: *attempts, Window: *window}, log)
	if err != nil {
		log.Fatal("open limiter", zap.Error(err))
	}
	defer func() { _ = closeLim() }()
	if p, ok := lim.(limiter.Pruner); ok {
		go limiter.Sweep(ctx, p, 10*time.Minute, max(time.Hour, 2**window), log)
	}

	app, err := web.New(web.Config{
		APIURL:       *apiURL,
		HTTPClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		Store:        store,
		Limiter:      lim,
		CookieSecure: cfg.CookieSecure,
		Log:          log,
	})
	if err != nil {
		log.Fatal("init web", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("forced shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("shutdown complete")
}
