// Package ratelimit guards the read-heavy public endpoints with a
// fixed-window request counter.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
// Implementations count requests per key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
	Limit                 int
	Window                time.Duration
}

func NewLimiter(cfg Config) (Limiter, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	switch cfg.Provider {
	case "memory", "":
		return NewMemoryLimiter(cfg.Limit, cfg.Window), nil
	case "redis":
		limiter, err := NewRedisLimiter(cfg.RedisConnectionString, cfg.Limit, cfg.Window)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit provider: %s", cfg.Provider)
	}
}

// Key builds the counter key for an endpoint and a client identifier.
func Key(endpoint, clientID string) string {
	return fmt.Sprintf("%s:%s", endpoint, clientID)
}
