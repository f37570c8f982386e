// Package models holds the gorm-mapped records of the invoicing store.
package models

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// NumberSequenceBucket tracks the last invoice number issued for an
// (owner, prefix, year) triple. Rows are created lazily and never deleted.
// Only the sequence allocator writes to this table.
type NumberSequenceBucket struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	OwnerID    string    `gorm:"size:128;not null;uniqueIndex:idx_sequence_bucket,priority:1" json:"owner_id"`
	Prefix     string    `gorm:"size:32;not null;uniqueIndex:idx_sequence_bucket,priority:2" json:"prefix"`
	Year       int       `gorm:"not null;uniqueIndex:idx_sequence_bucket,priority:3" json:"year"`
	LastIssued int64     `gorm:"not null" json:"last_issued"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
