package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrSequenceContention is returned when the retry budget runs out before a
	// compare-and-swap on the bucket succeeds.
	ErrSequenceContention = errors.New("sequence contention")

	// ErrInvalidPrefix is returned for prefixes that are not alphanumeric.
	ErrInvalidPrefix = errors.New("invalid invoice prefix")

	// ErrInvalidNumber is returned by Parse for malformed invoice numbers.
	ErrInvalidNumber = errors.New("invalid invoice number")
)

// ContentionError records the bucket and the attempts spent on it.
type ContentionError struct {
	Key      BucketKey
	Attempts int
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("sequence: %s still contended after %d attempts", e.Key, e.Attempts)
}

func (e *ContentionError) Is(target error) bool {
	return target == ErrSequenceContention
}
