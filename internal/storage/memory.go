package storage

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	touched time.Time
}

// Memory is a process-local Store. With an idle lifetime set, keys not read
// or written within it disappear, the way they expire in redis.
type Memory struct {
	mu     sync.Mutex
	m      map[string]entry
	idle   time.Duration
	lastGC time.Time
	now    func() time.Time
}

// NewMemory returns an empty in-memory store whose keys never expire.
func NewMemory() *Memory {
	return NewMemoryIdle(0)
}

// NewMemoryIdle returns an empty in-memory store dropping keys idle for
// longer than idle. A non-positive idle disables expiry.
func NewMemoryIdle(idle time.Duration) *Memory {
	if idle < 0 {
		idle = 0
	}
	return &Memory{m: make(map[string]entry), idle: idle, now: time.Now}
}

func (s *Memory) expired(e entry, now time.Time) bool {
	return s.idle > 0 && now.Sub(e.touched) > s.idle
}

// gc drops idle keys at most once per idle period. Callers hold mu.
func (s *Memory) gc(now time.Time) {
	if s.idle == 0 || now.Sub(s.lastGC) <= s.idle {
		return
	}
	for k, e := range s.m {
		if s.expired(e, now) {
			delete(s.m, k)
		}
	}
	s.lastGC = now
}

// Get implements Store.
func (s *Memory) Get(_ context.Context, key string) (string, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gc(now)

	e, ok := s.m[key]
	if !ok {
		return "", ErrNotFound
	}
	if s.expired(e, now) {
		delete(s.m, key)
		return "", ErrNotFound
	}
	e.touched = now
	s.m[key] = e
	return e.value, nil
}

// Set implements Store.
func (s *Memory) Set(_ context.Context, key, value string) error {
	now := s.now()
	s.mu.Lock()
	s.gc(now)
	s.m[key] = entry{value: value, touched: now}
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *Memory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, including idle ones not yet swept.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
