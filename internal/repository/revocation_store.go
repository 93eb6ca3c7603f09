package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is a keyed set of revoked refresh tokens with per-entry
// expiry.  Entries are added with a TTL equal to the token's remaining
// lifetime, so the store never grows unbounded: once the token would have
// expired on its own, the entry lapses too.  Add is idempotent.
type RevocationStore interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// revocationKey derives the storage key from the raw token.  Tokens are
// JWTs of several hundred bytes; hashing keeps keys small and avoids
// storing the plaintext credential in Redis.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}

// RedisRevocationStore keeps revocation entries in Redis using SET with a
// TTL.  Expired entries are purged by Redis itself.
type RedisRevocationStore struct{ RDB *redis.Client }

func NewRedisRevocationStore(rdb *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{RDB: rdb}
}

func (s *RedisRevocationStore) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already past its natural expiry, nothing to record
	}
	return s.RDB.Set(ctx, revocationKey(token), 1, ttl).Err()
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.RDB.Exists(ctx, revocationKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryRevocationStore is an in-process RevocationStore.  It backs tests
// and lets the server run without Redis.  Stale entries are purged lazily
// on each call.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time)}
}

func (s *MemoryRevocationStore) Add(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.entries[revocationKey(token)] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	_, ok := s.entries[revocationKey(token)]
	return ok, nil
}

func (s *MemoryRevocationStore) purgeLocked() {
	now := time.Now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
}
