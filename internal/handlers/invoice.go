package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/diewo77/devinvoice/internal/mail"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/pdf"
	"github.com/diewo77/devinvoice/internal/services"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Date accepts either a calendar date or an RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date: %q is neither %s nor RFC 3339", s, dateLayout)
	}
	d.Time = t
	return nil
}

type invoiceRequest struct {
	ClientID  string                   `json:"client_id"`
	Date      Date                     `json:"date"`
	DueDate   Date                     `json:"due_date"`
	LineItems []services.LineItemInput `json:"line_items"`
	TaxRate   *decimal.Decimal         `json:"tax_rate,omitempty"`
	Notes     string                   `json:"notes"`
}

func (req invoiceRequest) input() services.InvoiceInput {
	return services.InvoiceInput{
		ClientID:  req.ClientID,
		Date:      req.Date.Time,
		DueDate:   req.DueDate.Time,
		LineItems: req.LineItems,
		TaxRate:   req.TaxRate,
		Notes:     req.Notes,
	}
}

type InvoiceHandler struct {
	invoices *services.InvoiceService
	users    *services.UserService
	sender   mail.Sender
}

func NewInvoiceHandler(invoices *services.InvoiceService, users *services.UserService, sender mail.Sender) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, users: users, sender: sender}
}

// List returns the caller's invoices, optionally filtered by ?status=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var (
		invoices []models.Invoice
		err      error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := lifecycle.ParseStatus(raw)
		if perr != nil {
			writeError(w, r, perr)
			return
		}
		invoices, err = h.invoices.ListByStatus(r.Context(), uid, status)
	} else {
		invoices, err = h.invoices.List(r.Context(), uid)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *InvoiceHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	invoices, err := h.invoices.ListOverdue(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.invoices.Create(r.Context(), uid, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/invoices/"+inv.ID)
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, err := h.invoices.Get(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Update edits a draft. Sent and paid invoices answer 409.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.invoices.UpdateDraft(r.Context(), uid, r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// ChangeStatus applies {"status": "..."} to an invoice.
func (h *InvoiceHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var body struct {
		Status string `json:"status"`
	}
	if err := httpx.Decode(r, &body); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	target, err := lifecycle.ParseStatus(body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := h.invoices.ChangeStatus(r.Context(), uid, r.PathValue("id"), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, user, err := h.load(r, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := pdf.Render(inv, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", inv.Number+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Send emails the invoice PDF to the client and marks a draft as sent.
// Sending an already sent invoice again delivers it without a status change.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	inv, user, err := h.load(r, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Refuse before delivering anything for invoices that cannot become sent.
	if _, _, err := lifecycle.Apply(inv.State(), lifecycle.Sent, time.Now()); err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := pdf.Render(inv, user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := mail.Compose(inv, user, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sender.Send(r.Context(), msg); err != nil {
		logger.WithContext(r.Context()).Error().Err(err).Str("invoice", inv.Number).Msg("invoice email failed")
		respondError(w, r, http.StatusBadGateway, "mail_failed", nil)
		return
	}

	inv, err = h.invoices.ChangeStatus(r.Context(), uid, inv.ID, lifecycle.Sent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) load(r *http.Request, uid string) (*models.Invoice, *models.User, error) {
	inv, err := h.invoices.Get(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		return nil, nil, err
	}
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		return nil, nil, err
	}
	return inv, user, nil
}
