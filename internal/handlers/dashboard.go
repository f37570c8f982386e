package handlers

import (
	"net/http"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/i18n"
	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/services"
)

const recentInvoices = 5

type DashboardHandler struct {
	invoices *services.InvoiceService
}

func NewDashboardHandler(invoices *services.InvoiceService) *DashboardHandler {
	return &DashboardHandler{invoices: invoices}
}

// Get returns status counts, paid revenue and the latest invoices.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.invoices.Stats(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recent, err := h.invoices.Recent(r.Context(), uid, recentInvoices)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recent == nil {
		recent = []models.Invoice{}
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"stats":           stats,
		"revenue":         calc.FormatCurrencyFor(i18n.LangFromContext(r.Context()), stats.Revenue),
		"recent_invoices": recent,
	})
}
