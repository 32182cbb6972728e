// Package redis stores tracker collections as plain Redis strings, one key
// per collection under a shared prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/combattracker/internal/storage"
)

const DefaultKeyPrefix = "combattracker"

// Options configures the Redis connection
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
	PingTimeout  time.Duration
}

// DefaultOptions targets a local Redis with a small pool
func DefaultOptions() Options {
	return Options{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    DefaultKeyPrefix,
		PingTimeout:  5 * time.Second,
	}
}

// Storage implements storage.KV on a Redis client
type Storage struct {
	client *redis.Client
	prefix string
}

var _ storage.KV = (*Storage)(nil)

// Open connects to Redis and fails unless the server answers a PING
func Open(ctx context.Context, opts Options) (*Storage, error) {
	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.PoolSize > 0 {
		redisOpts.PoolSize = opts.PoolSize
	}
	redisOpts.MinIdleConns = opts.MinIdleConns

	client := redis.NewClient(redisOpts)

	if opts.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return Wrap(client, opts.KeyPrefix), nil
}

// Wrap uses an existing client. An empty prefix means DefaultKeyPrefix.
func Wrap(client *redis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return value, true, nil
}

// Set writes without expiry
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}
