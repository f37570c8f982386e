package sequence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 5, 17, 10, 0, 0, 0, time.UTC) }
}

func fastAllocator(store Store, opts ...Option) *Allocator {
	base := []Option{WithClock(fixedClock(2024)), WithBackoff(time.Microsecond, 50*time.Microsecond)}
	return NewAllocator(store, append(base, opts...)...)
}

func TestAllocate_SequentialAndConcurrent(t *testing.T) {
	ctx := context.Background()
	a := fastAllocator(NewMemoryStore())

	n, err := a.Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", n.String())

	n, err = a.Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-002", n.String())

	var wg sync.WaitGroup
	results := make([]string, 10)
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := a.Allocate(ctx, "u1", "INV")
			results[i], errs[i] = n.String(), err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Strings(results)
	want := make([]string, 10)
	for i := range want {
		want[i] = fmt.Sprintf("INV-2024-%03d", i+3)
	}
	assert.Equal(t, want, results)
}

func TestAllocate_CrossAllocatorContention(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := fastAllocator(store, WithMaxAttempts(100))
	b := fastAllocator(store, WithMaxAttempts(100))

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)
	for i := 0; i < 40; i++ {
		alloc := a
		if i%2 == 1 {
			alloc = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Allocate(ctx, "u1", "INV")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[n.Seq], "duplicate %d", n.Seq)
			seen[n.Seq] = true
		}()
	}
	wg.Wait()

	require.Len(t, seen, 40)
	for i := int64(1); i <= 40; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}

func TestAllocate_BucketsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := fastAllocator(store)

	n, err := a.Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", n.String())

	n, err = a.Allocate(ctx, "u1", "QT")
	require.NoError(t, err)
	assert.Equal(t, "QT-2024-001", n.String())

	n, err = a.Allocate(ctx, "u2", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", n.String())

	next := fastAllocator(store, WithClock(fixedClock(2025)))
	n, err = next.Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-001", n.String())
}

func TestAllocateSeeded_StartNumberOnlyForFirstBucket(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	a := fastAllocator(store)

	n, err := a.AllocateSeeded(ctx, "u1", "INV", 100)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-100", n.String())

	n, err = a.AllocateSeeded(ctx, "u1", "INV", 100)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-101", n.String())

	n, err = a.AllocateSeeded(ctx, "u1", "INV", 500)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-102", n.String(), "existing bucket ignores start number")

	n, err = a.AllocateSeeded(ctx, "u1", "BILL", 100)
	require.NoError(t, err)
	assert.Equal(t, "BILL-2024-001", n.String(), "later buckets start at 1")
}

func TestAllocate_GrowsPastThreeDigits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Insert(ctx, BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}, 999)
	require.NoError(t, err)

	n, err := fastAllocator(store).Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-1000", n.String())
}

func TestAllocate_InvalidPrefix(t *testing.T) {
	a := fastAllocator(NewMemoryStore())
	for _, p := range []string{"", "IN-V", "INV 1", "ÍNV"} {
		_, err := a.Allocate(context.Background(), "u1", p)
		assert.ErrorIs(t, err, ErrInvalidPrefix, p)
	}
}

// racingStore lets another writer win the first n compare-and-swaps.
type racingStore struct {
	*MemoryStore
	losses atomic.Int32
}

func (s *racingStore) CompareAndSwap(ctx context.Context, key BucketKey, expected, next int64) (bool, error) {
	if s.losses.Add(-1) >= 0 {
		if _, err := s.MemoryStore.CompareAndSwap(ctx, key, expected, next); err != nil {
			return false, err
		}
		return false, nil
	}
	return s.MemoryStore.CompareAndSwap(ctx, key, expected, next)
}

func TestAllocate_RetriesAfterLostSwap(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: NewMemoryStore()}
	_, err := store.Insert(ctx, BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}, 4)
	require.NoError(t, err)
	store.losses.Store(2)

	n, err := fastAllocator(store).Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n.Seq, "5 and 6 went to the competing writer")
}

func TestAllocate_ContentionAfterBudget(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: NewMemoryStore()}
	key := BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}
	_, err := store.Insert(ctx, key, 1)
	require.NoError(t, err)
	store.losses.Store(1000)

	_, err = fastAllocator(store, WithMaxAttempts(3)).Allocate(ctx, "u1", "INV")
	require.ErrorIs(t, err, ErrSequenceContention)
	var ce *ContentionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Attempts)
	assert.Equal(t, key, ce.Key)
}

func TestAllocate_DefaultAttemptBudget(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{MemoryStore: NewMemoryStore()}
	_, err := store.Insert(ctx, BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}, 1)
	require.NoError(t, err)
	store.losses.Store(1000)

	_, err = fastAllocator(store).Allocate(ctx, "u1", "INV")
	var ce *ContentionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, DefaultMaxAttempts, ce.Attempts)
}

func TestAllocate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()
	_, err := fastAllocator(store).Allocate(ctx, "u1", "INV")
	require.ErrorIs(t, err, context.Canceled)

	_, found, err := store.Load(context.Background(), BucketKey{Owner: "u1", Prefix: "INV", Year: 2024})
	require.NoError(t, err)
	assert.False(t, found, "no side effect after cancellation")
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	a := fastAllocator(NewMemoryStore())
	key := BucketKey{Owner: "u1", Prefix: "INV", Year: 2024}

	_, found, err := a.Current(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = a.Allocate(ctx, "u1", "INV")
	require.NoError(t, err)
	last, found, err := a.Current(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), last)
}

func TestBackoff_Bounded(t *testing.T) {
	a := NewAllocator(NewMemoryStore(), WithBackoff(10*time.Millisecond, 40*time.Millisecond))
	for retry := 1; retry <= 10; retry++ {
		d := a.backoff(retry)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
}

func TestAllocate_YearIsUTC(t *testing.T) {
	// 00:30 on 2025-01-01 at UTC+1 is still 2024 in UTC.
	paris := time.FixedZone("CET", 3600)
	clock := func() time.Time { return time.Date(2025, 1, 1, 0, 30, 0, 0, paris) }
	a := fastAllocator(NewMemoryStore(), WithClock(clock))

	n, err := a.Allocate(context.Background(), "u1", "INV")
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-001", n.String())
}
