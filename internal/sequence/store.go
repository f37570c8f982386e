package sequence

import (
	"context"
	"fmt"
)

// BucketKey identifies one counter.
type BucketKey struct {
	Owner  string
	Prefix string
	Year   int
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Owner, k.Prefix, k.Year)
}

// Store persists bucket counters. Implementations must make Insert and
// CompareAndSwap atomic with respect to other writers of the same key.
type Store interface {
	// Load returns the last issued value, or found == false if the bucket does not exist.
	Load(ctx context.Context, key BucketKey) (last int64, found bool, err error)
	// Insert creates the bucket with the given value unless it already exists.
	Insert(ctx context.Context, key BucketKey, last int64) (inserted bool, err error)
	// CompareAndSwap sets the counter to next only if it currently equals expected.
	CompareAndSwap(ctx context.Context, key BucketKey, expected, next int64) (swapped bool, err error)
	// OwnerHasBuckets reports whether any bucket exists for owner.
	OwnerHasBuckets(ctx context.Context, owner string) (bool, error)
}
