package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Client is a customer record owned by a user.
type Client struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OwnerID scopes the record to one user.
	OwnerID string `gorm:"size:128;index;not null" json:"owner_id"`

	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255" json:"email"`
	Address string `gorm:"size:500" json:"address"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Notes   string `gorm:"type:text" json:"notes,omitempty"`
}

// ClientSnapshot is the copy of client contact data frozen into an invoice.
type ClientSnapshot struct {
	Name    string `gorm:"size:255;not null" json:"name"`
	Email   string `gorm:"size:255" json:"email"`
	Address string `gorm:"size:500" json:"address"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// Snapshot copies the contact fields an invoice keeps.
func (c *Client) Snapshot() ClientSnapshot {
	return ClientSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Address: c.Address,
		Phone:   c.Phone,
	}
}

// AddressLines splits a multi-line address, dropping blank lines.
func (s ClientSnapshot) AddressLines() []string {
	var lines []string
	for _, l := range strings.Split(s.Address, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
