package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
)

// UserService is the player profile surface used by UserHandler
type UserService interface {
	Register(ctx context.Context, telegramID string, req *model.RegisterUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, req *model.UpdateUserRequest) (*model.User, error)
	UpdateLocation(ctx context.Context, userID string, req *model.UpdateLocationRequest) (*model.User, error)
	SignAgreements(ctx context.Context, userID string, flags model.AgreementFlags) (*model.User, error)
}

// UserTokenIssuer issues the session token returned after registration
type UserTokenIssuer interface {
	IssueUserToken(u *model.User) (*model.AuthResponse, error)
}

// UserHandler handles registration and the player's own profile
type UserHandler struct {
	users  UserService
	tokens UserTokenIssuer
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserService, tokens UserTokenIssuer) *UserHandler {
	return &UserHandler{users: users, tokens: tokens}
}

// RegisterRoutes registers profile routes. register wraps the registration
// endpoint (any valid token); player wraps the rest (registered players only).
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, register, player middleware.Middleware) {
	mux.Handle("POST /v1/users", register(http.HandlerFunc(h.Register)))
	mux.Handle("GET /v1/users/me", player(http.HandlerFunc(h.Me)))
	mux.Handle("PATCH /v1/users/me", player(http.HandlerFunc(h.UpdateMe)))
	mux.Handle("PUT /v1/users/me/location", player(http.HandlerFunc(h.UpdateLocation)))
	mux.Handle("PUT /v1/users/me/agreements", player(http.HandlerFunc(h.SignAgreements)))
}

// Register handles POST /v1/users - complete registration after Telegram login
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	telegramID := middleware.GetTelegramID(ctx)
	if telegramID == "" {
		WriteError(w, model.NewForbiddenError("telegram login required"))
		return
	}

	var req model.RegisterUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.Register(ctx, telegramID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := h.tokens.IssueUserToken(user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, resp, map[string]string{
		"self":       "/v1/users/me",
		"location":   "/v1/users/me/location",
		"agreements": "/v1/users/me/agreements",
	})
}

// Me handles GET /v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, user, nil)
}

// UpdateMe handles PATCH /v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, user, nil)
}

// UpdateLocation handles PUT /v1/users/me/location
func (h *UserHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateLocationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.UpdateLocation(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, user, map[string]string{"quests": "/v1/quests?city=" + cityOf(user)})
}

// SignAgreements handles PUT /v1/users/me/agreements
func (h *UserHandler) SignAgreements(w http.ResponseWriter, r *http.Request) {
	var flags model.AgreementFlags
	if !decodeBody(w, r, &flags) {
		return
	}

	user, err := h.users.SignAgreements(r.Context(), middleware.GetUserID(r.Context()), flags)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, user, nil)
}

func cityOf(u *model.User) string {
	if u.Location == nil {
		return ""
	}
	return url.QueryEscape(u.Location.City)
}
