package sequence

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	numberPattern = regexp.MustCompile(`^([A-Za-z0-9]+)-(\d{4})-(\d{3,})$`)
)

// ValidPrefix reports whether prefix can be used in an invoice number.
func ValidPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}

// Number is an allocated invoice identifier, e.g. INV-2024-007.
type Number struct {
	Prefix string
	Year   int
	Seq    int64
}

// String formats the number with at least three sequence digits.
func (n Number) String() string {
	return fmt.Sprintf("%s-%d-%03d", n.Prefix, n.Year, n.Seq)
}

// Parse splits a formatted invoice number.
func Parse(s string) (Number, error) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	year, _ := strconv.Atoi(m[2])
	seq, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return Number{Prefix: m[1], Year: year, Seq: seq}, nil
}
