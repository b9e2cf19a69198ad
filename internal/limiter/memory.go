package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a token bucket per key, refilled at Attempts per Window.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	lastGC   time.Time
	now      func() time.Time
}

// NewMemory returns a process-local limiter.
func NewMemory(cfg Config) *Memory {
	cfg = cfg.normalized()
	return &Memory{
		visitors: make(map[string]*visitor),
		every:    rate.Every(cfg.Window / time.Duration(cfg.Attempts)),
		burst:    cfg.Attempts,
		idle:     10 * cfg.Window,
		now:      time.Now,
	}
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastGC) > m.idle {
		for k, v := range m.visitors {
			if now.Sub(v.lastSeen) > m.idle {
				delete(m.visitors, k)
			}
		}
		m.lastGC = now
	}

	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.every, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}
