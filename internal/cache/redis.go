// Package cache holds the Redis-backed state that has to be shared between
// gatekeeper instances: login limiter counters and revoked session ids.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client and checks that the server answers.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return client, nil
}

// opTimeout bounds calls made from fiber middleware, which has no request context.
const opTimeout = 2 * time.Second

// Storage adapts a Redis client to fiber.Storage so the limiter middleware can
// keep its counters in Redis. Keys are namespaced with prefix.
type Storage struct {
	client *redis.Client
	prefix string
}

func NewStorage(client *redis.Client, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) key(k string) string { return s.prefix + k }

// Get returns nil, nil for a missing key as fiber.Storage requires.
func (s *Storage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (s *Storage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key(key), val, exp).Err()
}

func (s *Storage) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.client.Del(ctx, s.key(key)).Err()
}

// Reset removes every key under the storage prefix.
func (s *Storage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close is a no-op; the client is owned by whoever created it.
func (s *Storage) Close() error { return nil }

// Denylist stores revoked session token ids with a TTL equal to the token's
// remaining lifetime.
type Denylist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewDenylist(client *redis.Client, prefix string) *Denylist {
	return &Denylist{client: client, prefix: prefix, now: time.Now}
}

func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("cache: revoke: %w", err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("cache: revoked lookup: %w", err)
	}
	return n > 0, nil
}
