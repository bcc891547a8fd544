// Package model defines domain entities and data structures for the City Quest API.
//
// The model package contains all struct definitions for domain objects, request/response
// types, and error definitions. Models are used across all layers of the application.
//
// # Domain Entities
//
//   - User: Telegram player with profile, last location and signed agreements
//   - City, District: Catalog geography used to filter quests
//   - Location, Question: Library checkpoints and the trivia asked there
//   - Quest: A route of location snapshots between a start and a final point
//   - Participation: A paid registration plus the live game state
//   - Payment, Notification, Agreement: Supporting records
//
// # Public Views
//
// Anything that embeds questions has a ToPublic method that drops correct
// answers. Handlers must never serialize a Question or Quest to a player
// directly.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go. Request types
// expose Validate() []FieldError, which handlers turn into a 422 response.
package model
