// Package handler provides the HTTP handlers of the city quest API.
//
// Handlers are grouped by audience:
//
//   - AuthHandler: Telegram initData and admin password login
//   - UserHandler: registration, profile, location and agreements
//   - CatalogHandler: public cities, agreements and quests
//   - GameHandler: payments, enrollment and the gameplay loop
//   - StreamHandler: the live participation websocket
//   - AdminHandler: the /v1/admin panel
//   - HealthHandler: liveness and dependency checks
//
// Each handler depends on small interfaces declared next to it, so tests
// can substitute hand-written mocks. RegisterRoutes attaches the routes to
// a net/http ServeMux and takes the guard middleware as arguments.
//
// # Response Format
//
// Success bodies are wrapped as {"data": ...} with optional _links. Lists
// that page carry a pagination block. Errors are RFC 9457 Problem Details
// produced by MapServiceError.
package handler
