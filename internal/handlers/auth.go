package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/httpx"
	"github.com/diewo77/devinvoice/internal/services"
	"github.com/diewo77/devinvoice/validation"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type AuthHandler struct {
	users *services.UserService
	cost  int
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users, cost: bcrypt.DefaultCost}
}

// Signup creates an account with default settings and opens a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.Decode(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if in.Password != "" && len(in.Password) < minPasswordLen {
		v.Add("password", "out_of_range")
	}
	if !v.Empty() {
		respondError(w, r, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), services.NewUser{
		Email:        in.Email,
		DisplayName:  strings.TrimSpace(in.Name),
		PasswordHash: string(hashed),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.CreateSession(w, user.UID)
	httpx.JSON(w, http.StatusCreated, user)
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.Decode(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	user, err := h.users.FindByEmail(r.Context(), in.Email)
	if errors.Is(err, services.ErrNotFound) {
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	auth.CreateSession(w, user.UID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
