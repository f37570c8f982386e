package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default settings applied to a newly created account.
const (
	DefaultInvoicePrefix      = "INV"
	DefaultInvoiceStartNumber = 1
)

// User is the issuing account. Its business info and settings are stored inline.
type User struct {
	UID          string       `gorm:"primaryKey;size:128" json:"uid"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Email        string       `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName  string       `gorm:"size:255" json:"display_name,omitempty"`
	PasswordHash string       `gorm:"size:255" json:"-"`
	BusinessInfo BusinessInfo `gorm:"embedded;embeddedPrefix:business_" json:"business_info"`
	Settings     Settings     `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
}

// Settings drive invoice numbering and the default tax rate.
type Settings struct {
	DefaultTaxRate     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"default_tax_rate"`
	InvoicePrefix      string          `gorm:"size:32;not null;default:'INV'" json:"invoice_prefix"`
	InvoiceStartNumber int64           `gorm:"not null;default:1" json:"invoice_start_number"`
}

// DefaultSettings returns the settings of a fresh account.
func DefaultSettings() Settings {
	return Settings{
		DefaultTaxRate:     decimal.Zero,
		InvoicePrefix:      DefaultInvoicePrefix,
		InvoiceStartNumber: DefaultInvoiceStartNumber,
	}
}

// BusinessName returns the business name, falling back to the display name.
func (u *User) BusinessName() string {
	if u.BusinessInfo.Name != "" {
		return u.BusinessInfo.Name
	}
	return u.DisplayName
}
