package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlre/marine-platform/internal/auth"
	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// SlotRepository keeps the session slot under a single Redis key.
// A positive TTL makes a persisted session expire on its own.
type SlotRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSlotRepository(client redis.Cmdable, ttl time.Duration) *SlotRepository {
	return &SlotRepository{client: client, ttl: ttl}
}

func (r *SlotRepository) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrSlotNotFound
		}
		return "", fmt.Errorf("session slot get: %w", err)
	}
	return v, nil
}

func (r *SlotRepository) Put(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("session slot put: %w", err)
	}
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session slot delete: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable, for the health check.
func (r *SlotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
