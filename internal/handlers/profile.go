package handlers

import (
	"net/http"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/internal/models"
	"github.com/diewo77/devinvoice/internal/services"
)

// ProfileHandler serves the signed-in user's business info and settings.
type ProfileHandler struct {
	users *services.UserService
}

func NewProfileHandler(users *services.UserService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// UpdateBusiness replaces the issuer identity. The logo reference is kept.
func (h *ProfileHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var info models.BusinessInfo
	if err := httpx.Decode(r, &info); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, err := h.users.UpdateBusinessInfo(r.Context(), uid, info)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var st models.Settings
	if err := httpx.Decode(r, &st); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	user, err := h.users.UpdateSettings(r.Context(), uid, st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
