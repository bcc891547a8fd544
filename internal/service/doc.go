// Package service implements the business logic layer of the City Quest API.
//
// The service package owns the game rules, validation and the orchestration
// of repository calls. Handlers talk only to services; services talk only to
// the repository interfaces they declare.
//
// # Service Pattern
//
// All services follow a consistent pattern:
//
//   - Constructor function (NewXxxService) accepts a config struct with repository dependencies
//   - Methods implement one use case each and validate their input
//   - Errors are returned as sentinel errors or wrapped errors for context
//   - Context is passed through for cancellation and request-scoped values
//   - Time comes from an injectable Now func so tests control the clock
//
// # Game Engine
//
// Progression is the quest state machine. It performs no I/O: GameService
// loads a participation, takes the participation's lock, applies one
// Progression transition, saves the result and then publishes events,
// metrics and notifications.
//
//	waiting ──(within radius)──► arrived ──(delay)──► answering
//	   ▲                                                 │
//	   └──────────────(correct, more checkpoints)────────┤
//	                                                     ▼
//	                                                 completed
//
// Three speed violations move an in-progress participation to disqualified
// from any stage.
//
// # Error Handling
//
// Services return domain-specific errors defined as package-level variables:
//
//	var (
//	    ErrQuestNotFound = errors.New("quest not found")
//	    ErrInvalidStage  = errors.New("action not allowed in the current stage")
//	)
//
// # Example Usage
//
//	game := NewGameService(GameServiceConfig{
//	    Participations: participationRepo,
//	    Quests:         questRepo,
//	    Users:          userRepo,
//	    Progression:    NewProgression(DefaultGameRules(), NewGeoService()),
//	})
//	result, err := game.RecordLocation(ctx, userID, participationID, &model.LocationSampleRequest{
//	    Lat: 55.7539,
//	    Lng: 37.6208,
//	})
package service
