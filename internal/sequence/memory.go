package sequence

import (
	"context"
	"sync"
)

// MemoryStore keeps buckets in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[BucketKey]int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[BucketKey]int64)}
}

func (s *MemoryStore) Load(ctx context.Context, key BucketKey) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.buckets[key]
	return v, ok, nil
}

func (s *MemoryStore) Insert(ctx context.Context, key BucketKey, last int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[key]; ok {
		return false, nil
	}
	s.buckets[key] = last
	return true, nil
}

func (s *MemoryStore) CompareAndSwap(ctx context.Context, key BucketKey, expected, next int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.buckets[key]
	if !ok || v != expected {
		return false, nil
	}
	s.buckets[key] = next
	return true, nil
}

func (s *MemoryStore) OwnerHasBuckets(ctx context.Context, owner string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.buckets {
		if k.Owner == owner {
			return true, nil
		}
	}
	return false, nil
}
