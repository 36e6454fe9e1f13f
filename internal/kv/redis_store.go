package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyspace prefixes every key written to Redis so several local profiles can
// share one server.
const keyspace = "pocketledger:"

// RedisStore keeps pairs in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the server at url. A bare host:port is accepted
// as well as a redis:// URL.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	target := url
	if !strings.Contains(target, "://") {
		target = "redis://" + target
	}
	opt, err := redis.ParseURL(target)
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, keyspace+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyspace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyspace+key).Err(); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, prefix string) (map[string]string, error) {
	out := map[string]string{}
	iter := s.client.Scan(ctx, 0, keyspace+escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		value, err := s.client.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("kv list %q: %w", prefix, err)
		}
		out[strings.TrimPrefix(full, keyspace)] = value
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
