package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_String(t *testing.T) {
	tests := []struct {
		n    Number
		want string
	}{
		{Number{"INV", 2024, 1}, "INV-2024-001"},
		{Number{"INV", 2024, 42}, "INV-2024-042"},
		{Number{"INV", 2024, 999}, "INV-2024-999"},
		{Number{"ACME1", 2025, 1000}, "ACME1-2025-1000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.n.String())
	}
}

func TestParse(t *testing.T) {
	n, err := Parse("INV-2024-012")
	require.NoError(t, err)
	assert.Equal(t, Number{Prefix: "INV", Year: 2024, Seq: 12}, n)

	n, err = Parse("X1-2030-12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), n.Seq)

	for _, bad := range []string{"", "INV-2024-01", "INV-24-001", "IN V-2024-001", "INV-2024-abc"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidNumber, bad)
	}
}
