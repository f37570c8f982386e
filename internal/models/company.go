package models

// BusinessInfo is the issuer identity printed on invoices.
type BusinessInfo struct {
	Name    string `gorm:"size:255" json:"name"`
	Address string `gorm:"size:500" json:"address"`
	Phone   string `gorm:"size:50" json:"phone,omitempty"`
	Email   string `gorm:"size:255" json:"email"`
	// LogoURL is an opaque reference to an uploaded image.
	LogoURL string `gorm:"size:500" json:"logo_url,omitempty"`
	TaxID   string `gorm:"size:64" json:"tax_id,omitempty"`
}
