package payment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedStore remembers which webhook event ids were already applied.
// MarkProcessed returns first == false for a replayed id.
type ProcessedStore interface {
	MarkProcessed(ctx context.Context, eventID string) (first bool, err error)
	Forget(ctx context.Context, eventID string) error
}

type RedisProcessedStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProcessedStore(rdb *redis.Client, ttl time.Duration) *RedisProcessedStore {
	return &RedisProcessedStore{rdb: rdb, ttl: ttl}
}

func processedKey(eventID string) string {
	return "webhook:evt:" + eventID
}

func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.rdb.SetNX(ctx, processedKey(eventID), "1", s.ttl).Result()
}

func (s *RedisProcessedStore) Forget(ctx context.Context, eventID string) error {
	return s.rdb.Del(ctx, processedKey(eventID)).Err()
}

// MemoryProcessedStore is the single-process fallback when Redis is not
// configured. Entries never expire.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}

func (s *MemoryProcessedStore) Forget(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, eventID)
	return nil
}
