package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/i18n"
	"github.com/diewo77/devinvoice/internal/calc"
	"github.com/diewo77/devinvoice/internal/lifecycle"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/diewo77/devinvoice/internal/mail"
	"github.com/diewo77/devinvoice/internal/sequence"
	"github.com/diewo77/devinvoice/internal/services"
)

// retryAfterSeconds is advertised on 503 responses for transient failures.
const retryAfterSeconds = "1"

// respondError writes a localized error. Details carry field codes or indexes.
func respondError(w http.ResponseWriter, r *http.Request, status int, code string, details any) {
	lang := i18n.LangFromContext(r.Context())
	httpx.JSON(w, status, httpx.ErrorResponse{
		Error:   code,
		Message: i18n.T(lang, code),
		Details: details,
	})
}

// writeError maps a service error to a status code and error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *services.ValidationError
		lerr *calc.LineItemError
		rerr *calc.TaxRateError
		terr *lifecycle.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		respondError(w, r, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
	case errors.As(err, &lerr):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_line_item", map[string]any{
			"index":  lerr.Index,
			"field":  lerr.Field,
			"reason": lerr.Reason,
		})
	case errors.Is(err, calc.ErrInvalidLineItem):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_line_item", nil)
	case errors.As(err, &rerr):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_tax_rate", map[string]string{
			"reason": rerr.Reason,
		})
	case errors.Is(err, calc.ErrInvalidTaxRate):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_tax_rate", nil)
	case errors.Is(err, sequence.ErrInvalidPrefix):
		respondError(w, r, http.StatusUnprocessableEntity, "invalid_prefix", nil)
	case errors.Is(err, mail.ErrNoRecipient):
		respondError(w, r, http.StatusUnprocessableEntity, "no_recipient", nil)
	case errors.Is(err, lifecycle.ErrUnknownStatus):
		respondError(w, r, http.StatusBadRequest, "invalid_status", nil)
	case errors.Is(err, services.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", nil)
	case errors.As(err, &terr):
		respondError(w, r, http.StatusConflict, "illegal_status_transition", map[string]string{
			"from": terr.From.String(),
			"to":   terr.To.String(),
		})
	case errors.Is(err, services.ErrInvoiceLocked):
		respondError(w, r, http.StatusConflict, "invoice_locked", nil)
	case errors.Is(err, services.ErrReferentialConflict):
		respondError(w, r, http.StatusConflict, "referential_conflict", nil)
	case errors.Is(err, services.ErrAlreadyExists):
		respondError(w, r, http.StatusConflict, "already_exists", nil)
	case errors.Is(err, sequence.ErrSequenceContention):
		logger.WithContext(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("sequence contention")
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, r, http.StatusServiceUnavailable, "sequence_contention", nil)
	case errors.Is(err, services.ErrStoreUnavailable):
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		w.Header().Set("Retry-After", retryAfterSeconds)
		respondError(w, r, http.StatusServiceUnavailable, "store_unavailable", nil)
	default:
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		respondError(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}
