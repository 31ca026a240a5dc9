package cache

// Package cache provides short-lived caching for carrier responses that are
// safe to reuse across requests, such as the shipping-method listing.

import (
	"context"
	"fmt"
	"time"
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		provider, err := NewMemoryProvider()
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "redis":
		provider, err := NewRedisProvider(cfg.RedisConnectionString)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// MethodsKey is the cache key for the carrier shipping-method listing.
func MethodsKey(carrier string) string {
	return fmt.Sprintf("methods:%s", carrier)
}
