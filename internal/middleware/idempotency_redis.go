package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix   = "cityquest:idempotency:"
	redisPendingMark = "pending"
)

// RedisIdempotencyStore shares idempotency keys between server instances
type RedisIdempotencyStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	poll    time.Duration
}

// RedisIdempotencyConfig holds configuration for the Redis store
type RedisIdempotencyConfig struct {
	URL     string
	TTL     time.Duration // how long to keep responses (default 24h)
	LockTTL time.Duration // how long a pending key survives a crashed owner (default 30s)
	Poll    time.Duration // wait interval while another request holds the key (default 50ms)
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
func NewRedisIdempotencyStore(ctx context.Context, cfg RedisIdempotencyConfig) (*RedisIdempotencyStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisIdempotencyStore(client, cfg), nil
}

func newRedisIdempotencyStore(client *redis.Client, cfg RedisIdempotencyConfig) *RedisIdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 50 * time.Millisecond
	}
	return &RedisIdempotencyStore{
		client:  client,
		ttl:     cfg.TTL,
		lockTTL: cfg.LockTTL,
		poll:    cfg.Poll,
	}
}

// Close closes the Redis connection
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Acquire implements IdempotencyStore
func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string) (*CachedResponse, error) {
	rkey := redisKeyPrefix + key
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, rkey, redisPendingMark, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return nil, nil
		}

		raw, err := s.client.Get(ctx, rkey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			// released or expired in between, try to claim again
			continue
		case err != nil:
			return nil, fmt.Errorf("redis get: %w", err)
		}
		if string(raw) != redisPendingMark {
			var resp CachedResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				return nil, fmt.Errorf("decode cached response: %w", err)
			}
			return &resp, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Complete implements IdempotencyStore
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp *CachedResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Release implements IdempotencyStore. Only a pending key is removed.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	rkey := redisKeyPrefix + key
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, rkey).Result()
		if errors.Is(err, redis.Nil) || (err == nil && val != redisPendingMark) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, rkey)
			return nil
		})
		return err
	}, rkey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
