package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to a message code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// Email accepts an empty value; use Required to forbid it.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

// NonNegativeDecimal rejects values below zero.
func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

// RangeDecimal rejects values outside [minVal, maxVal].
func RangeDecimal(field string, val, minVal, maxVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) || val.GreaterThan(maxVal) {
		v.Add(field, "out_of_range")
	}
}

// MaxDecimals rejects values with more than places decimal places. Trailing
// zeros do not count.
func MaxDecimals(field string, val decimal.Decimal, places int32, v Violations) {
	if !val.Equal(val.Truncate(places)) {
		v.Add(field, "too_precise")
	}
}
