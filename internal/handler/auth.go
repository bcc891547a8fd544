package handler

import (
	"context"
	"net/http"

	"github.com/forgo/cityquest/internal/model"
)

// AuthService is the login surface used by AuthHandler
type AuthService interface {
	TelegramLogin(ctx context.Context, initData string) (*model.AuthResponse, error)
	AdminLogin(ctx context.Context, username, password string) (*model.AuthResponse, error)
}

// AuthHandler handles login endpoints
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes registers the public login routes
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/auth/telegram", h.Telegram)
	mux.HandleFunc("POST /v1/auth/admin", h.Admin)
}

// Telegram handles POST /v1/auth/telegram
func (h *AuthHandler) Telegram(w http.ResponseWriter, r *http.Request) {
	var req model.TelegramAuthRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}

	resp, err := h.auth.TelegramLogin(r.Context(), req.InitData)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	links := map[string]string{"me": "/v1/users/me"}
	if !resp.Registered {
		links = map[string]string{"register": "/v1/users"}
	}
	WriteData(w, http.StatusOK, resp, links)
}

// Admin handles POST /v1/auth/admin
func (h *AuthHandler) Admin(w http.ResponseWriter, r *http.Request) {
	var req model.AdminLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}

	resp, err := h.auth.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, resp, nil)
}
