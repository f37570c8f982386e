package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/validation"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to another owner.
	ErrNotFound = errors.New("record not found")

	// ErrReferentialConflict is returned when deleting a record still referenced elsewhere.
	ErrReferentialConflict = errors.New("referential conflict")

	// ErrStoreUnavailable wraps failures of the underlying database.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidInput is returned for field-level validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyExists is returned when creating a record whose unique key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvoiceLocked is returned when editing an invoice that has left draft.
	ErrInvoiceLocked = errors.New("invoice is no longer a draft")
)

// StoreError records the operation that hit a database failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("services: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// ValidationError carries per-field violation codes.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", map[string]string(e.Violations))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// storeErr classifies a gorm error. Not-found becomes ErrNotFound; context
// errors pass through; everything else is a StoreError.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return &StoreError{Op: op, Err: err}
	}
}

// domainErrors are returned to callers untouched.
var domainErrors = []error{
	ErrNotFound,
	ErrReferentialConflict,
	ErrInvalidInput,
	ErrAlreadyExists,
	ErrInvoiceLocked,
	calc.ErrInvalidLineItem,
	calc.ErrInvalidTaxRate,
	lifecycle.ErrIllegalStatusTransition,
	lifecycle.ErrUnknownStatus,
	sequence.ErrSequenceContention,
	sequence.ErrInvalidPrefix,
}

// classify keeps domain errors as they are and routes the rest through storeErr.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return storeErr(op, err)
}
