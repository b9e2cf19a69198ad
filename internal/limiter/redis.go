package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the subset of the go-redis client used by Redis.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Redis counts attempts in fixed windows shared by all web replicas.
type Redis struct {
	client Counter
	prefix string
	cfg    Config
}

// NewRedis returns a Redis limiter storing counters under prefix.
func NewRedis(client Counter, prefix string, cfg Config) *Redis {
	return &Redis{client: client, prefix: prefix, cfg: cfg.normalized()}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("increment attempts: %w", err)
	}
	// NX leaves a running window alone and repairs a counter whose TTL was
	// never set, so a failed call here cannot pin the key forever.
	if err := r.client.ExpireNX(ctx, k, r.cfg.Window).Err(); err != nil {
		return false, fmt.Errorf("expire attempts: %w", err)
	}
	return count <= int64(r.cfg.Attempts), nil
}
