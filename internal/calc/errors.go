package calc

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidLineItem is returned when a line item quantity or rate is
	// negative, too precise or too large to store.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidTaxRate is returned when a tax rate falls outside [0, 100]
	// or has more than two decimals.
	ErrInvalidTaxRate = errors.New("invalid tax rate")
)

// LineItemError identifies the offending line and field.
type LineItemError struct {
	Index  int
	Field  string
	Reason string
	Value  decimal.Decimal
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("line item %d: %s %s (got %s)", e.Index, e.Field, e.Reason, e.Value)
}

func (e *LineItemError) Is(target error) bool {
	return target == ErrInvalidLineItem
}

// TaxRateError carries the rejected rate.
type TaxRateError struct {
	Rate   decimal.Decimal
	Reason string
}

func (e *TaxRateError) Error() string {
	if e.Reason == ReasonTooPrecise {
		return fmt.Sprintf("tax rate %s has more than two decimals", e.Rate)
	}
	return fmt.Sprintf("tax rate %s is outside [0, 100]", e.Rate)
}

func (e *TaxRateError) Is(target error) bool {
	return target == ErrInvalidTaxRate
}
