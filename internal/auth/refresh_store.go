package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh"

// RefreshStore keeps the allowlist of live refresh token ids. Consume removes
// the id so each refresh token works once.
type RefreshStore interface {
	Save(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (uuid.UUID, error)
}

// RedisRefreshStore keeps refresh ids in Redis with the token's lifetime.
type RedisRefreshStore struct {
	redis redis.Cmdable
}

func NewRedisRefreshStore(client redis.Cmdable) *RedisRefreshStore {
	return &RedisRefreshStore{redis: client}
}

func (s *RedisRefreshStore) Save(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.redis.Set(ctx, refreshKey(jti), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Consume(ctx context.Context, jti string) (uuid.UUID, error) {
	val, err := s.redis.GetDel(ctx, refreshKey(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrRefreshReused
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume refresh token: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume refresh token: %w", err)
	}
	return id, nil
}

func refreshKey(jti string) string {
	return fmt.Sprintf("%s:%s", refreshKeyPrefix, jti)
}

type memoryEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// MemoryRefreshStore is the single-process allowlist used when Redis is not
// configured.
type MemoryRefreshStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryRefreshStore) Save(_ context.Context, jti string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[jti] = memoryEntry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Consume(_ context.Context, jti string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jti]
	if !ok {
		return uuid.Nil, ErrRefreshReused
	}
	delete(s.entries, jti)
	if s.now().After(e.expiresAt) {
		return uuid.Nil, ErrRefreshReused
	}
	return e.userID, nil
}
