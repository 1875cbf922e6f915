package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

// RevocationStore is the shared set of revoked token identifiers. Entries
// expire with the token they revoke, so the set never grows past the live
// token population. InsertIfAbsent is the atomic primitive refresh rotation
// depends on: concurrent rotations of one token must see exactly one true.
type RevocationStore interface {
	InsertIfAbsent(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationStore keeps revocation entries in Redis with per-key TTL.
type RedisRevocationStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocationStore constructs a Redis-backed store.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func (s *RedisRevocationStore) key(tokenID string) string {
	return "revoked:" + tokenID
}

// InsertIfAbsent adds the token id unless present. SET NX gives the
// compare-and-swap guarantee for rotation.
func (s *RedisRevocationStore) InsertIfAbsent(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		// The token is already past expiry, nothing to revoke; report it
		// as a fresh insert so rotation of a stale token does not look
		// like replay (verify rejects it first anyway).
		return true, nil
	}
	inserted, err := s.client.SetNX(ctx, s.key(tokenID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: revocation insert: %v", shared.ErrBackendUnavailable, err)
	}
	return inserted, nil
}

// Contains reports whether the token id is revoked.
func (s *RedisRevocationStore) Contains(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: revocation lookup: %v", shared.ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

// MemoryRevocationStore is an in-process store for tests and single-node
// deployments. Reads are concurrent, inserts serialize on the mutex.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore constructs an empty in-memory store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *MemoryRevocationStore) WithClock(now func() time.Time) *MemoryRevocationStore {
	s.now = now
	return s
}

// InsertIfAbsent adds the token id unless a live entry exists.
func (s *MemoryRevocationStore) InsertIfAbsent(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if !expiresAt.After(s.now()) {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.entries[tokenID]; ok && exp.After(s.now()) {
		return false, nil
	}
	s.entries[tokenID] = expiresAt
	return true, nil
}

// Contains reports whether a live entry exists for the token id.
func (s *MemoryRevocationStore) Contains(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.entries[tokenID]
	return ok && exp.After(s.now()), nil
}

// Sweep drops entries past their expiry and returns how many were removed.
// Redis handles this with key TTLs; the memory store needs a periodic pass.
func (s *MemoryRevocationStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var (
	_ RevocationStore = (*RedisRevocationStore)(nil)
	_ RevocationStore = (*MemoryRevocationStore)(nil)
)
