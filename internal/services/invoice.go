package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/diewo77/devinvoice/internal/metrics"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/validation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// statusAttempts bounds re-reads after a lost conditional status write.
// The machine has two forward steps, so three reads always settle.
const statusAttempts = 3

var errConcurrentUpdate = errors.New("invoice changed concurrently")

// LineItemInput is one line of a create or update request.
type LineItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

// InvoiceInput is the caller-supplied part of an invoice. TaxRate falls back
// to the owner's default when nil.
type InvoiceInput struct {
	ClientID  string           `json:"client_id"`
	Date      time.Time        `json:"date"`
	DueDate   time.Time        `json:"due_date"`
	LineItems []LineItemInput  `json:"line_items"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes     string           `json:"notes"`
}

func (in InvoiceInput) validate(requireClient bool) error {
	v := make(validation.Violations)
	if requireClient {
		validation.Required("client_id", in.ClientID, v)
		if in.DueDate.IsZero() {
			v.Add("due_date", "required")
		}
	}
	if !in.Date.IsZero() && !in.DueDate.IsZero() && in.DueDate.Before(in.Date) {
		v.Add("due_date", "due_before_date")
	}
	for i, li := range in.LineItems {
		validation.Required(fmt.Sprintf("line_items[%d].description", i), li.Description, v)
	}
	return invalid(v)
}

func (in InvoiceInput) calcLines() []calc.Line {
	lines := make([]calc.Line, len(in.LineItems))
	for i, li := range in.LineItems {
		lines[i] = calc.Line{Description: strings.TrimSpace(li.Description), Quantity: li.Quantity, Rate: li.Rate}
	}
	return lines
}

// Stats summarizes an owner's invoices.
type Stats struct {
	Draft   int64           `json:"draft"`
	Sent    int64           `json:"sent"`
	Paid    int64           `json:"paid"`
	Overdue int64           `json:"overdue"`
	Revenue decimal.Decimal `json:"revenue"`
}

// InvoiceService creates invoices, moves them through their lifecycle and queries them.
// There is no delete: invoices are kept for the record.
type InvoiceService struct {
	db    *gorm.DB
	alloc *sequence.Allocator
	now   func() time.Time
	log   zerolog.Logger
}

// InvoiceOption configures an InvoiceService.
type InvoiceOption func(*InvoiceService)

// WithInvoiceClock overrides the service clock.
func WithInvoiceClock(now func() time.Time) InvoiceOption {
	return func(s *InvoiceService) { s.now = now }
}

func NewInvoiceService(db *gorm.DB, alloc *sequence.Allocator, opts ...InvoiceOption) *InvoiceService {
	s := &InvoiceService{
		db:    db,
		alloc: alloc,
		now:   time.Now,
		log:   logger.WithComponent("invoices"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and prices the input, reserves the next invoice number and
// stores the invoice and its lines in one transaction as a draft.
//
// A number reserved for a create that then fails to persist is skipped, never reused.
func (s *InvoiceService) Create(ctx context.Context, owner string, in InvoiceInput) (*models.Invoice, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("uid = ?", owner).Take(&user).Error; err != nil {
		return nil, storeErr("load profile", err)
	}

	rate := user.Settings.DefaultTaxRate
	if in.TaxRate != nil {
		rate = *in.TaxRate
	}
	lines := in.calcLines()
	totals, err := calc.Compute(lines, rate)
	if err != nil {
		return nil, err
	}

	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", in.ClientID, owner).Take(&client).Error; err != nil {
		return nil, storeErr("load client", err)
	}

	num, err := s.alloc.AllocateSeeded(ctx, owner, user.Settings.InvoicePrefix, user.Settings.InvoiceStartNumber)
	if err != nil {
		return nil, classify("allocate number", err)
	}

	now := s.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	inv := &models.Invoice{
		ID:        models.NewID(),
		OwnerID:   owner,
		Number:    num.String(),
		ClientID:  client.ID,
		Client:    client.Snapshot(),
		Date:      date.UTC(),
		DueDate:   in.DueDate.UTC(),
		LineItems: toLineItems(lines),
		Status:    lifecycle.Draft,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inv.SetTotals(totals)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The client must still exist when the invoice lands.
		var c models.Client
		if err := forShare(tx).Where("id = ? AND owner_id = ?", client.ID, owner).Take(&c).Error; err != nil {
			return err
		}
		return tx.Create(inv).Error
	})
	if err != nil {
		s.log.Warn().Err(err).Str("owner", owner).Str("number", inv.Number).Msg("invoice not stored, number skipped")
		return nil, classify("create invoice", err)
	}

	metrics.InvoicesCreated.Inc()
	s.log.Info().Str("owner", owner).Str("number", inv.Number).Str("total", inv.Total.StringFixed(2)).Msg("invoice created")
	return inv, nil
}

// Get returns one invoice with its lines in order.
func (s *InvoiceService) Get(ctx context.Context, owner, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("id = ? AND owner_id = ?", id, owner).
		Take(&inv).Error
	if err != nil {
		return nil, storeErr("get invoice", err)
	}
	return &inv, nil
}

// GetByNumber looks an invoice up by its number.
func (s *InvoiceService) GetByNumber(ctx context.Context, owner, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("owner_id = ? AND number = ?", owner, number).
		Take(&inv).Error
	if err != nil {
		return nil, storeErr("get invoice by number", err)
	}
	return &inv, nil
}

// List returns all invoices of owner, newest first.
func (s *InvoiceService) List(ctx context.Context, owner string) ([]models.Invoice, error) {
	var out []models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list invoices", err)
	}
	return out, nil
}

// Recent returns at most limit invoices of owner, newest first.
func (s *InvoiceService) Recent(ctx context.Context, owner string, limit int) ([]models.Invoice, error) {
	var out []models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("owner_id = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, storeErr("recent invoices", err)
	}
	return out, nil
}

// ListByStatus returns invoices in one status, newest first.
func (s *InvoiceService) ListByStatus(ctx context.Context, owner string, status lifecycle.Status) ([]models.Invoice, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", lifecycle.ErrUnknownStatus, string(status))
	}
	var out []models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("owner_id = ? AND status = ?", owner, status).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list invoices by status", err)
	}
	return out, nil
}

// ListOverdue returns sent invoices whose due date has passed, latest due date first.
func (s *InvoiceService) ListOverdue(ctx context.Context, owner string) ([]models.Invoice, error) {
	var out []models.Invoice
	err := s.withLines(s.db.WithContext(ctx)).
		Where("owner_id = ? AND status = ? AND due_date < ?", owner, lifecycle.Sent, s.now().UTC()).
		Order("due_date DESC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list overdue invoices", err)
	}
	return out, nil
}

// ChangeStatus moves an invoice to target. The write is conditional on the
// status that was read, so concurrent callers cannot both apply a transition.
// Re-confirming the current sent or paid status succeeds without writing.
func (s *InvoiceService) ChangeStatus(ctx context.Context, owner, id string, target lifecycle.Status) (*models.Invoice, error) {
	for attempt := 0; attempt < statusAttempts; attempt++ {
		inv, err := s.Get(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		next, changed, err := lifecycle.Apply(inv.State(), target, s.now().UTC())
		if err != nil {
			return nil, err
		}
		if !changed {
			return inv, nil
		}

		updates := map[string]any{
			"status":     next.Status,
			"updated_at": next.UpdatedAt,
		}
		if inv.SentAt == nil && next.SentAt != nil {
			updates["sent_at"] = *next.SentAt
		}
		if inv.PaidAt == nil && next.PaidAt != nil {
			updates["paid_at"] = *next.PaidAt
		}
		res := s.db.WithContext(ctx).
			Model(&models.Invoice{}).
			Where("id = ? AND owner_id = ? AND status = ?", id, owner, inv.Status).
			Updates(updates)
		if res.Error != nil {
			return nil, storeErr("change status", res.Error)
		}
		if res.RowsAffected == 1 {
			from := inv.Status
			inv.SetState(next)
			metrics.StatusTransitions.WithLabelValues(string(from), string(next.Status)).Inc()
			s.log.Info().Str("invoice", inv.Number).Str("from", string(from)).Str("to", string(next.Status)).Msg("status changed")
			return inv, nil
		}
		s.log.Debug().Str("invoice", id).Msg("status changed underneath, re-evaluating")
	}
	return nil, &StoreError{Op: "change status", Err: errConcurrentUpdate}
}

// UpdateDraft edits a draft invoice: client, dates, lines, tax rate and notes.
// Totals are recomputed; the invoice number never changes. Empty fields keep
// their current value, except LineItems which always replaces the lines.
func (s *InvoiceService) UpdateDraft(ctx context.Context, owner, id string, in InvoiceInput) (*models.Invoice, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := forUpdate(tx).Where("id = ? AND owner_id = ?", id, owner).Take(&inv).Error; err != nil {
			return err
		}
		if !inv.CanEdit() {
			return ErrInvoiceLocked
		}

		rate := inv.TaxRate
		if in.TaxRate != nil {
			rate = *in.TaxRate
		}
		lines := in.calcLines()
		totals, err := calc.Compute(lines, rate)
		if err != nil {
			return err
		}

		date, due := inv.Date, inv.DueDate
		if !in.Date.IsZero() {
			date = in.Date.UTC()
		}
		if !in.DueDate.IsZero() {
			due = in.DueDate.UTC()
		}
		if due.Before(date) {
			v := make(validation.Violations)
			v.Add("due_date", "due_before_date")
			return invalid(v)
		}

		updates := map[string]any{
			"date":       date,
			"due_date":   due,
			"subtotal":   totals.Subtotal,
			"tax_rate":   totals.TaxRate,
			"tax_amount": totals.TaxAmount,
			"total":      totals.Total,
			"notes":      in.Notes,
			"updated_at": s.now().UTC(),
		}
		if in.ClientID != "" && in.ClientID != inv.ClientID {
			var c models.Client
			if err := forShare(tx).Where("id = ? AND owner_id = ?", in.ClientID, owner).Take(&c).Error; err != nil {
				return err
			}
			snap := c.Snapshot()
			updates["client_id"] = c.ID
			updates["client_name"] = snap.Name
			updates["client_email"] = snap.Email
			updates["client_address"] = snap.Address
			updates["client_phone"] = snap.Phone
		}

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", id, lifecycle.Draft).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvoiceLocked
		}

		if err := tx.Where("invoice_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		items := toLineItems(lines)
		for i := range items {
			items[i].InvoiceID = id
		}
		if len(items) > 0 {
			return tx.Create(&items).Error
		}
		return nil
	})
	if err != nil {
		return nil, classify("update draft", err)
	}
	return s.Get(ctx, owner, id)
}

// Revenue sums the totals of paid invoices.
func (s *InvoiceService) Revenue(ctx context.Context, owner string) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("owner_id = ? AND status = ?", owner, lifecycle.Paid).
		Pluck("total", &totals).Error
	if err != nil {
		return decimal.Zero, storeErr("revenue", err)
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

// Stats counts invoices by status and sums paid revenue.
func (s *InvoiceService) Stats(ctx context.Context, owner string) (Stats, error) {
	var rows []struct {
		Status lifecycle.Status
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count").
		Where("owner_id = ?", owner).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}

	var st Stats
	for _, r := range rows {
		switch r.Status {
		case lifecycle.Draft:
			st.Draft = r.Count
		case lifecycle.Sent:
			st.Sent = r.Count
		case lifecycle.Paid:
			st.Paid = r.Count
		}
	}
	err = s.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("owner_id = ? AND status = ? AND due_date < ?", owner, lifecycle.Sent, s.now().UTC()).
		Count(&st.Overdue).Error
	if err != nil {
		return Stats{}, storeErr("stats", err)
	}
	if st.Revenue, err = s.Revenue(ctx, owner); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *InvoiceService) withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func toLineItems(lines []calc.Line) []models.LineItem {
	items := make([]models.LineItem, len(lines))
	for i, l := range lines {
		items[i] = models.LineItem{
			ID:          models.NewID(),
			Position:    i,
			Description: l.Description,
			Quantity:    l.Quantity,
			Rate:        l.Rate,
			Amount:      l.Amount,
		}
	}
	return items
}
