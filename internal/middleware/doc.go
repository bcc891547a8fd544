// Package middleware provides HTTP middleware for the City Quest API.
//
// # Available Middleware
//
//   - RequestID, Logger, Recovery: request tracing and panic safety
//   - CORS, Compress: browser access for the Mini-App and gzip responses
//   - Auth, RequireUser, RequireAdmin: session token validation and role gates
//   - RateLimit: per-user or per-IP token buckets
//   - Idempotency: replay of payment and registration POSTs
//
// # Authentication
//
// Auth accepts any valid session token, including the one issued right after
// Telegram login that has no user ID yet. Player routes add RequireUser:
//
//	mux.Handle("GET /v1/users/me", middleware.Chain(h, middleware.Auth(jwtSvc), middleware.RequireUser))
//
// Handlers read the caller from the context:
//
//	userID := middleware.GetUserID(r.Context())
//
// # Idempotency
//
// The memory store serves a single instance. With REDIS_URL set the server
// uses RedisIdempotencyStore so retries land on the stored response no matter
// which instance answers.
package middleware
