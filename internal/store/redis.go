// Package store provides durable key/value storage backends for ganalytics.
//
// This file implements the Redis-backed store. Keys are namespaced under a
// configurable prefix so the emitter can share a Redis instance with the host
// application.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis store configuration constants
const (
	// DefaultRedisPrefix namespaces all keys written by this store.
	DefaultRedisPrefix = "ganalytics:"
	// DefaultRedisTimeout bounds every Redis round trip.
	DefaultRedisTimeout = 5 * time.Second
)

type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore creates a new Redis store based on provided options.
// It pings the server before returning so misconfiguration fails at startup.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("RedisStore.NewRedisStore: creating Redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	if cfg.RedisAddr == "" {
		slog.Error("RedisStore address not set")
		return nil, fmt.Errorf("redis address not set")
	}
	prefix := cfg.RedisPrefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		ReadTimeout:  DefaultRedisTimeout,
		WriteTimeout: DefaultRedisTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRedisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err, "addr", cfg.RedisAddr)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Debug("RedisStore ready", "addr", cfg.RedisAddr, "prefix", prefix)

	return &RedisStore{client: client, prefix: prefix, timeout: DefaultRedisTimeout}, nil
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *RedisStore) GetInt(key string, defaultValue int) int {
	return parseIntOrDefault(s.GetString(key), defaultValue)
}

func (s *RedisStore) SetInt(key string, value int) error {
	return s.SetString(key, formatInt(value))
}

func (s *RedisStore) GetString(key string) string {
	ctx, cancel := s.opCtx()
	defer cancel()
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return ""
	}
	if err != nil {
		slog.Error("RedisStore.GetString: get failed", "error", err, "key", key)
		return ""
	}
	return val
}

func (s *RedisStore) SetString(key, value string) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		slog.Error("RedisStore.SetString: set failed", "error", err, "key", key)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) DeleteKey(key string) error {
	ctx, cancel := s.opCtx()
	defer cancel()
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		slog.Error("RedisStore.DeleteKey: del failed", "error", err, "key", key)
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) HasKey(key string) bool {
	ctx, cancel := s.opCtx()
	defer cancel()
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		slog.Error("RedisStore.HasKey: exists failed", "error", err, "key", key)
		return false
	}
	return n > 0
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
