package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homefixer/homefixer/internal/clock"
)

const blacklistPrefix = "auth:blacklist:v1:"

// Blacklist records revoked refresh token ids until their natural expiry.
type Blacklist interface {
	// Add revokes jti until the given time. It reports false when jti was
	// already revoked, which makes double logout detectable atomically.
	Add(ctx context.Context, jti string, until time.Time) (bool, error)
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist stores revoked ids as expiring keys.
type RedisBlacklist struct {
	cache *redis.Client
	clock clock.Clock
}

// NewRedisBlacklist builds a Redis-backed blacklist.
func NewRedisBlacklist(cache *redis.Client, c clock.Clock) *RedisBlacklist {
	if c == nil {
		c = clock.System{}
	}
	return &RedisBlacklist{cache: cache, clock: c}
}

// Add uses SETNX so that two concurrent logouts with the same token have
// exactly one winner.
func (b *RedisBlacklist) Add(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(b.clock.Now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return b.cache.SetNX(ctx, blacklistPrefix+jti, "1", ttl).Result()
}

// Contains reports whether jti has been revoked.
func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.cache.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryBlacklist struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]time.Time
}

// NewMemoryBlacklist builds an in-process blacklist for development and tests.
func NewMemoryBlacklist(c clock.Clock) Blacklist {
	if c == nil {
		c = clock.System{}
	}
	return &memoryBlacklist{clock: c, entries: make(map[string]time.Time)}
}

func (b *memoryBlacklist) Add(_ context.Context, jti string, until time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	if exp, ok := b.entries[jti]; ok && now.Before(exp) {
		return false, nil
	}
	for id, exp := range b.entries {
		if !now.Before(exp) {
			delete(b.entries, id)
		}
	}
	b.entries[jti] = until
	return true, nil
}

func (b *memoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[jti]
	return ok && b.clock.Now().Before(exp), nil
}
