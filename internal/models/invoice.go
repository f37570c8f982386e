package models

import (
	"time"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a billing document. Its number is assigned once at creation and never changes.
type Invoice struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OwnerID is the issuing user.
	OwnerID string `gorm:"size:128;not null;uniqueIndex:idx_invoice_owner_number,priority:1;index:idx_invoice_owner_status,priority:1" json:"owner_id"`

	Number string `gorm:"size:64;not null;uniqueIndex:idx_invoice_owner_number,priority:2" json:"invoice_number"`

	ClientID string         `gorm:"size:36;index;not null" json:"client_id"`
	Client   ClientSnapshot `gorm:"embedded;embeddedPrefix:client_" json:"client"`

	Date    time.Time `gorm:"not null" json:"date"`
	DueDate time.Time `gorm:"not null;index" json:"due_date"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`

	Subtotal  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxRate   decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	TaxAmount decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"tax_amount"`
	Total     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`

	Status lifecycle.Status `gorm:"size:16;not null;default:'draft';index:idx_invoice_owner_status,priority:2" json:"status"`
	SentAt *time.Time       `json:"sent_at,omitempty"`
	PaidAt *time.Time       `json:"paid_at,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

// CanEdit returns true if line items and dates can still change.
func (i *Invoice) CanEdit() bool {
	return i.Status == lifecycle.Draft
}

// IsOverdue reports whether a sent invoice is past its due date at now.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == lifecycle.Sent && i.DueDate.Before(now)
}

// State returns the lifecycle view of the invoice.
func (i *Invoice) State() lifecycle.State {
	return lifecycle.State{
		Status:    i.Status,
		SentAt:    i.SentAt,
		PaidAt:    i.PaidAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// SetState copies a lifecycle state back onto the invoice.
func (i *Invoice) SetState(st lifecycle.State) {
	i.Status = st.Status
	i.SentAt = st.SentAt
	i.PaidAt = st.PaidAt
	i.UpdatedAt = st.UpdatedAt
}

// SetTotals copies computed totals onto the invoice.
func (i *Invoice) SetTotals(t calc.Totals) {
	i.Subtotal = t.Subtotal
	i.TaxRate = t.TaxRate
	i.TaxAmount = t.TaxAmount
	i.Total = t.Total
}

// LineItem is one billed line. Position keeps insertion order.
type LineItem struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	InvoiceID string `gorm:"size:36;index;not null" json:"-"`
	Position  int    `gorm:"not null;default:0" json:"-"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"rate"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
}

func (l *LineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}
