// Package calc derives line amounts, subtotal, tax and total for an invoice.
//
// All arithmetic is exact decimal arithmetic. Rounding to cents happens once per
// line amount and once for the tax amount, half away from zero.
package calc

import (
	"errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Largest scale each stored figure keeps. Finer input would be rounded on
// write and no longer match the amounts computed from it.
const (
	quantityScale = 3
	rateScale     = 4
	TaxRateScale  = 2
)

// Exclusive upper bounds that fit the numeric columns.
var (
	maxQuantity = decimal.New(1, 9)
	maxRate     = decimal.New(1, 10)
	maxMoney    = decimal.New(1, 12)
)

// Reasons carried by LineItemError and TaxRateError.
const (
	ReasonNegative   = "must_not_be_negative"
	ReasonTooPrecise = "too_precise"
	ReasonTooLarge   = "too_large"
	ReasonOutOfRange = "out_of_range"
)

// hasScale reports whether d has no more than scale decimal places.
// Trailing zeros do not count.
func hasScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Truncate(scale))
}

func checkFigure(d decimal.Decimal, scale int32, limit decimal.Decimal) string {
	switch {
	case d.IsNegative():
		return ReasonNegative
	case !hasScale(d, scale):
		return ReasonTooPrecise
	case d.GreaterThanOrEqual(limit):
		return ReasonTooLarge
	}
	return ""
}

// Line is a single invoice line as seen by the calculator.
type Line struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Amount      decimal.Decimal
}

// Totals are the derived monetary figures of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmount returns round2(quantity * rate). Negative, over-precise or
// oversized inputs are rejected, as is an amount too large to store.
func LineAmount(quantity, rate decimal.Decimal) (decimal.Decimal, error) {
	if reason := checkFigure(quantity, quantityScale, maxQuantity); reason != "" {
		return decimal.Zero, &LineItemError{Field: "quantity", Reason: reason, Value: quantity}
	}
	if reason := checkFigure(rate, rateScale, maxRate); reason != "" {
		return decimal.Zero, &LineItemError{Field: "rate", Reason: reason, Value: rate}
	}
	amount := Round2(quantity.Mul(rate))
	if amount.GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, &LineItemError{Field: "amount", Reason: ReasonTooLarge, Value: amount}
	}
	return amount, nil
}

// Subtotal sums the amounts of the given lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

// CheckTaxRate returns a *TaxRateError unless rate is a percentage in
// [0, 100] with at most two decimal places.
func CheckTaxRate(rate decimal.Decimal) error {
	switch {
	case rate.IsNegative() || rate.GreaterThan(hundred):
		return &TaxRateError{Rate: rate, Reason: ReasonOutOfRange}
	case !hasScale(rate, TaxRateScale):
		return &TaxRateError{Rate: rate, Reason: ReasonTooPrecise}
	}
	return nil
}

// TaxAmount returns round2(subtotal * rate / 100). Invalid rates are rejected, never clamped.
func TaxAmount(subtotal, rate decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckTaxRate(rate); err != nil {
		return decimal.Zero, err
	}
	return Round2(subtotal.Mul(rate).Shift(-2)), nil
}

// Total returns subtotal + tax.
func Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax)
}

// Compute validates lines, fills in each line amount in place and returns the totals.
// Line order is preserved.
func Compute(lines []Line, rate decimal.Decimal) (Totals, error) {
	if err := CheckTaxRate(rate); err != nil {
		return Totals{}, err
	}
	for i := range lines {
		amount, err := LineAmount(lines[i].Quantity, lines[i].Rate)
		if err != nil {
			var le *LineItemError
			if errors.As(err, &le) {
				le.Index = i
			}
			return Totals{}, err
		}
		lines[i].Amount = amount
	}
	sub := Subtotal(lines)
	tax, err := TaxAmount(sub, rate)
	if err != nil {
		return Totals{}, err
	}
	total := Total(sub, tax)
	if total.GreaterThanOrEqual(maxMoney) {
		return Totals{}, &LineItemError{Index: overflowIndex(lines, rate), Field: "amount", Reason: ReasonTooLarge, Value: total}
	}
	return Totals{
		Subtotal:  sub,
		TaxRate:   rate,
		TaxAmount: tax,
		Total:     total,
	}, nil
}

// overflowIndex returns the first line whose running total, tax included,
// no longer fits a stored amount.
func overflowIndex(lines []Line, rate decimal.Decimal) int {
	sub := decimal.Zero
	for i, l := range lines {
		sub = sub.Add(l.Amount)
		tax, _ := TaxAmount(sub, rate)
		if Total(sub, tax).GreaterThanOrEqual(maxMoney) {
			return i
		}
	}
	return len(lines) - 1
}
