package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/pkg/jwt"
)

// TokenValidator validates session tokens
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// TelegramIDKey is the context key for the caller's Telegram ID
	TelegramIDKey contextKey = "telegramID"
)

// Auth returns a middleware that validates the session token. Tokens issued
// before registration pass too; RequireUser narrows that down.
func Auth(tokens TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != nil {
				problem.WriteJSON(w)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					p := model.NewUnauthorizedError("token expired")
					p.Code = model.ErrCodeTokenExpired
					p.WriteJSON(w)
				case errors.Is(err, jwt.ErrInvalidSignature):
					p := model.NewUnauthorizedError("invalid token signature")
					p.Code = model.ErrCodeTokenInvalid
					p.WriteJSON(w)
				default:
					p := model.NewUnauthorizedError("invalid token")
					p.Code = model.ErrCodeTokenInvalid
					p.WriteJSON(w)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireUser admits registered players only. It must run after Auth.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		switch {
		case claims == nil:
			model.NewUnauthorizedError("authentication required").WriteJSON(w)
		case claims.Role != jwt.RoleUser:
			model.NewForbiddenError("player token required").WriteJSON(w)
		case !claims.IsRegistered():
			model.NewForbiddenError("registration required").WriteJSON(w)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireAdmin admits admin tokens only. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			model.NewUnauthorizedError("authentication required").WriteJSON(w)
			return
		}
		if !claims.IsAdmin() {
			model.NewForbiddenError("admin access required").WriteJSON(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithClaims stores validated claims and the identifiers they carry
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, TelegramIDKey, claims.TelegramID)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTelegramID extracts the Telegram ID from context
func GetTelegramID(ctx context.Context) string {
	if id, ok := ctx.Value(TelegramIDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so upgrades may pass the token as ?token= instead.
func bearerToken(r *http.Request) (string, *model.ProblemDetails) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebsocketUpgrade(r) {
			if token := r.URL.Query().Get("token"); token != "" {
				return token, nil
			}
		}
		return "", model.NewUnauthorizedError("missing authorization header")
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", model.NewUnauthorizedError("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}
