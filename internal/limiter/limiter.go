// Package limiter throttles auth form submissions per browser session.
package limiter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Limiter decides whether one more attempt is allowed for key.
type Limiter interface {
	// Allow records an attempt and reports whether it may proceed.
	Allow(ctx context.Context, key string) (bool, error)
}

// Config is a fixed budget of Attempts per Window.
type Config struct {
	Attempts int
	Window   time.Duration
}

// DefaultConfig allows 5 auth submissions per minute.
var DefaultConfig = Config{Attempts: 5, Window: time.Minute}

func (c Config) normalized() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultConfig.Attempts
	}
	if c.Window <= 0 {
		c.Window = DefaultConfig.Window
	}
	return c
}

// Pruner is implemented by limiters whose windows outlive the process.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Duration) error
}

// Sweep calls Prune every interval until ctx is done.
func Sweep(ctx context.Context, p Pruner, every, olderThan time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := p.Prune(ctx, olderThan); err != nil && ctx.Err() == nil {
				log.Warn("limiter prune", zap.Error(err))
			}
		}
	}
}
