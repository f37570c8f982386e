package services

import (
	"context"
	"strings"
	"time"

	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/validation"
	"gorm.io/gorm"
)

// ClientInput is the editable part of a client.
type ClientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

func (in ClientInput) validate() error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	return invalid(v)
}

// ClientService manages an owner's clients.
type ClientService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewClientService(db *gorm.DB) *ClientService {
	return &ClientService{db: db, now: time.Now}
}

// List returns the owner's clients, newest first.
func (s *ClientService) List(ctx context.Context, owner string) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Find(&clients).Error
	if err != nil {
		return nil, storeErr("list clients", err)
	}
	return clients, nil
}

// Get returns one client of owner.
func (s *ClientService) Get(ctx context.Context, owner, id string) (*models.Client, error) {
	var c models.Client
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, owner).Take(&c).Error; err != nil {
		return nil, storeErr("get client", err)
	}
	return &c, nil
}

// Create stores a new client for owner.
func (s *ClientService) Create(ctx context.Context, owner string, in ClientInput) (*models.Client, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c := &models.Client{
		ID:        models.NewID(),
		OwnerID:   owner,
		Name:      in.Name,
		Email:     in.Email,
		Address:   in.Address,
		Phone:     in.Phone,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, storeErr("create client", err)
	}
	return c, nil
}

// Update replaces the editable fields. Invoices already issued keep their snapshot.
func (s *ClientService) Update(ctx context.Context, owner, id string, in ClientInput) (*models.Client, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":       in.Name,
		"email":      in.Email,
		"address":    in.Address,
		"phone":      in.Phone,
		"notes":      in.Notes,
		"updated_at": s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(updates).Error; err != nil {
		return nil, storeErr("update client", err)
	}
	return s.Get(ctx, owner, id)
}

// Delete removes a client that no invoice references.
func (s *ClientService) Delete(ctx context.Context, owner, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Client
		if err := forUpdate(tx).Where("id = ? AND owner_id = ?", id, owner).Take(&c).Error; err != nil {
			return err
		}
		var refs int64
		if err := tx.Model(&models.Invoice{}).Where("client_id = ? AND owner_id = ?", id, owner).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrReferentialConflict
		}
		return tx.Delete(&c).Error
	})
	return classify("delete client", err)
}

func (in ClientInput) trimmed() ClientInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}
