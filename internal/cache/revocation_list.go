package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RevocationList remembers token IDs that must be refused until they
// would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisRevocationList struct {
	client *redisv9.Client
	now    func() time.Time
}

func NewRedisRevocationList(client *redisv9.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client, now: time.Now}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(l.now())
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked token failed: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := l.client.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked token failed: %w", err)
	}
	return exists > 0, nil
}

func revokedKey(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

// MemoryRevocationList is the single-process fallback used when Redis is
// not configured.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !expiresAt.After(now) {
		return nil
	}
	l.entries[tokenID] = expiresAt
	l.sweep(now)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(l.now()) {
		delete(l.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// sweep drops expired entries; callers hold mu.
func (l *MemoryRevocationList) sweep(now time.Time) {
	for id, expiresAt := range l.entries {
		if !expiresAt.After(now) {
			delete(l.entries, id)
		}
	}
}
