package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxTaxRate = decimal.NewFromInt(100)

// NewUser is the input to UserService.Create.
type NewUser struct {
	UID          string
	Email        string
	DisplayName  string
	PasswordHash string
}

// UserService manages issuing accounts and their invoice settings.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, now: time.Now}
}

// Create stores a new account with default settings: tax 0, prefix INV,
// start number 1, and the business email set to the login email.
func (s *UserService) Create(ctx context.Context, in NewUser) (*models.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	if err := invalid(v); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, storeErr("create user", err)
	}
	if count > 0 {
		return nil, ErrAlreadyExists
	}

	uid := in.UID
	if uid == "" {
		uid = models.NewID()
	}
	now := s.now().UTC()
	u := &models.User{
		UID:          uid,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
		PasswordHash: in.PasswordHash,
		BusinessInfo: models.BusinessInfo{Name: in.DisplayName, Email: in.Email},
		Settings:     models.DefaultSettings(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, storeErr("create user", err)
	}
	return u, nil
}

// Get loads an account by uid.
func (s *UserService) Get(ctx context.Context, uid string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).Take(&u).Error; err != nil {
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

// FindByEmail loads an account by login email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.TrimSpace(strings.ToLower(email))).
		Take(&u).Error
	if err != nil {
		return nil, storeErr("find user", err)
	}
	return &u, nil
}

// Exists reports whether uid refers to a stored account.
func (s *UserService) Exists(ctx context.Context, uid string) bool {
	_, err := s.Get(ctx, uid)
	return err == nil
}

// UpdateBusinessInfo replaces the issuer identity shown on invoices.
func (s *UserService) UpdateBusinessInfo(ctx context.Context, uid string, info models.BusinessInfo) (*models.User, error) {
	v := make(validation.Violations)
	validation.Required("name", info.Name, v)
	validation.Email("email", info.Email, v)
	if err := invalid(v); err != nil {
		return nil, err
	}
	return s.update(ctx, uid, "update business info", func(u *models.User) {
		// The logo is managed separately through SetLogoURL.
		info.LogoURL = u.BusinessInfo.LogoURL
		u.BusinessInfo = info
	})
}

// UpdateSettings changes numbering and default tax settings. Existing invoice
// numbers and buckets are not affected.
func (s *UserService) UpdateSettings(ctx context.Context, uid string, st models.Settings) (*models.User, error) {
	v := make(validation.Violations)
	if !sequence.ValidPrefix(st.InvoicePrefix) {
		v.Add("invoice_prefix", "invalid_prefix")
	}
	validation.NonNegativeDecimal("default_tax_rate", st.DefaultTaxRate, v)
	validation.RangeDecimal("default_tax_rate", st.DefaultTaxRate, decimal.Zero, maxTaxRate, v)
	validation.MaxDecimals("default_tax_rate", st.DefaultTaxRate, calc.TaxRateScale, v)
	if st.InvoiceStartNumber < 1 {
		v.Add("invoice_start_number", "must_be_positive")
	}
	if err := invalid(v); err != nil {
		return nil, err
	}
	return s.update(ctx, uid, "update settings", func(u *models.User) {
		u.Settings = st
	})
}

// SetLogoURL stores an opaque reference to an uploaded logo.
func (s *UserService) SetLogoURL(ctx context.Context, uid, url string) (*models.User, error) {
	return s.update(ctx, uid, "set logo", func(u *models.User) {
		u.BusinessInfo.LogoURL = url
	})
}

func (s *UserService) update(ctx context.Context, uid, op string, mutate func(*models.User)) (*models.User, error) {
	var out models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("uid = ?", uid).Take(&out).Error; err != nil {
			return err
		}
		mutate(&out)
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	return &out, nil
}
