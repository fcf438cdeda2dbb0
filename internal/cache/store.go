// Package cache is the session key-value store. Chat history, wallet
// bindings and Telegram link tokens live here so they can move to redis when
// more than one instance runs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"yieldhunter/internal/config"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("cache: redis_addr is required for the redis backend")
		}
		s := NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := s.Client.Ping(ctx).Err(); err != nil {
			_ = s.Client.Close()
			return nil, fmt.Errorf("cache: redis ping: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}

// Key joins namespace parts with ':'.
func Key(parts ...string) string {
	return "yh:" + strings.Join(parts, ":")
}

func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var zero T
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return out, true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b, ttl)
}
