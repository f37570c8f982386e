// Package sequence issues per-owner, per-prefix, per-year invoice numbers.
//
// Each (owner, prefix, year) bucket holds the last issued value. A new number is
// claimed with an insert-if-absent for the first allocation and a
// compare-and-swap for every later one, so concurrent allocators, in-process or
// across instances, never hand out the same value.
package sequence

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/diewo77/devinvoice/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 5 * time.Millisecond
	DefaultMaxDelay    = 200 * time.Millisecond
)

// Allocator hands out invoice numbers from a Store.
type Allocator struct {
	store       Store
	now         func() time.Time
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	log         zerolog.Logger

	mu    sync.Mutex
	gates map[BucketKey]chan struct{}
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the time source used to pick the bucket year.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// WithMaxAttempts bounds the number of insert or CAS attempts per allocation.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the cap.
func WithBackoff(base, max time.Duration) Option {
	return func(a *Allocator) {
		if base > 0 {
			a.baseDelay = base
		}
		if max >= a.baseDelay {
			a.maxDelay = max
		}
	}
}

// NewAllocator builds an allocator over store.
func NewAllocator(store Store, opts ...Option) *Allocator {
	a := &Allocator{
		store:       store,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		log:         logger.WithComponent("sequence"),
		gates:       make(map[BucketKey]chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate reserves the next number for owner and prefix in the current year.
func (a *Allocator) Allocate(ctx context.Context, owner, prefix string) (Number, error) {
	return a.AllocateSeeded(ctx, owner, prefix, 1)
}

// AllocateSeeded is Allocate with the account's configured start number.
// startNumber only applies when owner has never been issued a number; every
// later bucket starts at 1 and an existing bucket continues from its counter.
func (a *Allocator) AllocateSeeded(ctx context.Context, owner, prefix string, startNumber int64) (Number, error) {
	if !ValidPrefix(prefix) {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	if owner == "" {
		return Number{}, fmt.Errorf("sequence: empty owner")
	}
	if startNumber < 1 {
		startNumber = 1
	}
	key := BucketKey{Owner: owner, Prefix: prefix, Year: a.now().UTC().Year()}

	release, err := a.acquire(ctx, key)
	if err != nil {
		return Number{}, err
	}
	defer release()

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := a.sleep(ctx, attempt-1); err != nil {
				metrics.NumbersAllocated.WithLabelValues("error").Inc()
				return Number{}, err
			}
		}

		seq, ok, err := a.try(ctx, key, startNumber)
		if err != nil {
			metrics.NumbersAllocated.WithLabelValues("error").Inc()
			return Number{}, err
		}
		if ok {
			metrics.NumbersAllocated.WithLabelValues("ok").Inc()
			return Number{Prefix: prefix, Year: key.Year, Seq: seq}, nil
		}

		metrics.SequenceConflicts.Inc()
		a.log.Debug().Str("bucket", key.String()).Int("attempt", attempt).Msg("bucket changed underneath, retrying")
	}

	metrics.NumbersAllocated.WithLabelValues("contention").Inc()
	a.log.Warn().Str("bucket", key.String()).Int("attempts", a.maxAttempts).Msg("sequence contention")
	return Number{}, &ContentionError{Key: key, Attempts: a.maxAttempts}
}

// Current returns the last value issued from a bucket without changing it.
func (a *Allocator) Current(ctx context.Context, key BucketKey) (int64, bool, error) {
	last, found, err := a.store.Load(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("sequence: load %s: %w", key, err)
	}
	return last, found, nil
}

// try performs one read and one conditional write. ok is false when another
// writer got there first.
func (a *Allocator) try(ctx context.Context, key BucketKey, startNumber int64) (int64, bool, error) {
	last, found, err := a.store.Load(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("sequence: load %s: %w", key, err)
	}

	if !found {
		seed, err := a.seed(ctx, key.Owner, startNumber)
		if err != nil {
			return 0, false, err
		}
		next := seed + 1
		inserted, err := a.store.Insert(ctx, key, next)
		if err != nil {
			return 0, false, fmt.Errorf("sequence: insert %s: %w", key, err)
		}
		return next, inserted, nil
	}

	next := last + 1
	swapped, err := a.store.CompareAndSwap(ctx, key, last, next)
	if err != nil {
		return 0, false, fmt.Errorf("sequence: swap %s: %w", key, err)
	}
	return next, swapped, nil
}

// seed returns the value a new bucket is created "after".
func (a *Allocator) seed(ctx context.Context, owner string, startNumber int64) (int64, error) {
	has, err := a.store.OwnerHasBuckets(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("sequence: owner buckets: %w", err)
	}
	if has {
		return 0, nil
	}
	return startNumber - 1, nil
}

// acquire serializes callers of this allocator on the same bucket so they do
// not burn each other's retry budget. Cross-process safety comes from the store.
func (a *Allocator) acquire(ctx context.Context, key BucketKey) (func(), error) {
	a.mu.Lock()
	gate, ok := a.gates[key]
	if !ok {
		gate = make(chan struct{}, 1)
		a.gates[key] = gate
	}
	a.mu.Unlock()

	select {
	case gate <- struct{}{}:
		return func() { <-gate }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Allocator) backoff(retry int) time.Duration {
	d := a.baseDelay << (retry - 1)
	if d <= 0 || d > a.maxDelay {
		d = a.maxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half+1)
}

func (a *Allocator) sleep(ctx context.Context, retry int) error {
	t := time.NewTimer(a.backoff(retry))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
