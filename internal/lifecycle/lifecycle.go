// Package lifecycle implements the invoice status machine: draft -> sent -> paid.
package lifecycle

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle position of an invoice.
type Status string

const (
	Draft Status = "draft"
	Sent  Status = "sent"
	Paid  Status = "paid"
)

var (
	// ErrIllegalStatusTransition is returned for any transition outside draft->sent->paid.
	ErrIllegalStatusTransition = errors.New("illegal status transition")

	// ErrUnknownStatus is returned when parsing a value that is not a status.
	ErrUnknownStatus = errors.New("unknown status")
)

// next holds the single forward step allowed from each status.
var next = map[Status]Status{
	Draft: Sent,
	Sent:  Paid,
}

// All lists statuses in lifecycle order.
func All() []Status { return []Status{Draft, Sent, Paid} }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case Draft, Sent, Paid:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	case nil:
		*s = ""
	default:
		return fmt.Errorf("lifecycle: cannot scan %T into Status", src)
	}
	return nil
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// TransitionError describes a rejected transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move invoice from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalStatusTransition
}

// CanTransition reports whether from -> to is a forward step.
func CanTransition(from, to Status) bool {
	n, ok := next[from]
	return ok && n == to
}

// State is the part of an invoice the machine reads and writes.
type State struct {
	Status    Status
	SentAt    *time.Time
	PaidAt    *time.Time
	UpdatedAt time.Time
}

// Apply moves st to target at time now.
//
// Re-confirming sent or paid returns the state untouched with changed == false.
// Entering sent or paid stamps SentAt or PaidAt only if it is still unset.
func Apply(st State, target Status, now time.Time) (State, bool, error) {
	if !target.Valid() {
		return st, false, fmt.Errorf("%w: %q", ErrUnknownStatus, string(target))
	}
	if st.Status == target && target != Draft {
		return st, false, nil
	}
	if !CanTransition(st.Status, target) {
		return st, false, &TransitionError{From: st.Status, To: target}
	}

	out := st
	out.Status = target
	switch target {
	case Sent:
		if out.SentAt == nil {
			t := now
			out.SentAt = &t
		}
	case Paid:
		if out.PaidAt == nil {
			t := now
			out.PaidAt = &t
		}
	}
	out.UpdatedAt = now
	return out, true, nil
}
