package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/service"
)

// PaymentProcessor charges for quests
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, userID, questID string) (*model.Payment, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
}

// Enroller registers players for quests
type Enroller interface {
	RegisterForQuest(ctx context.Context, userID, questID string, req *model.RegisterParticipationRequest) (*model.Participation, error)
	ListMine(ctx context.Context, userID string) ([]model.Participation, error)
}

// GameRunner drives a participation through the quest
type GameRunner interface {
	Rules() service.GameRules
	StartQuest(ctx context.Context, userID, participationID string) (*model.Participation, error)
	RecordLocation(ctx context.Context, userID, participationID string, req *model.LocationSampleRequest) (*model.SampleResult, error)
	ManualArrival(ctx context.Context, userID, participationID string) (*model.ParticipationView, error)
	CurrentQuestion(ctx context.Context, userID, participationID string) (*model.QuestionView, error)
	SubmitAnswer(ctx context.Context, userID, participationID string, answer model.AnswerInput) (*model.AnswerResult, error)
	RequestAIQuestion(ctx context.Context, userID, participationID string) (*model.QuestionView, error)
	CancelParticipation(ctx context.Context, userID, participationID string) (*model.ParticipationView, error)
	GetParticipation(ctx context.Context, userID, participationID string) (*model.ParticipationView, error)
	Summary(ctx context.Context, userID, participationID string) (*model.ParticipationSummary, error)
	Progress(ctx context.Context, userID, questID string) (*model.UserProgress, error)
}

// GameHandler handles payments, enrollment and gameplay
type GameHandler struct {
	payments PaymentProcessor
	enroll   Enroller
	game     GameRunner
}

// NewGameHandler creates a new game handler
func NewGameHandler(payments PaymentProcessor, enroll Enroller, game GameRunner) *GameHandler {
	return &GameHandler{payments: payments, enroll: enroll, game: game}
}

// RegisterRoutes registers the player routes. player guards every route;
// idempotent additionally wraps the endpoints that charge or enroll.
func (h *GameHandler) RegisterRoutes(mux *http.ServeMux, player, idempotent middleware.Middleware) {
	once := func(f http.HandlerFunc) http.Handler { return player(idempotent(f)) }
	auth := func(f http.HandlerFunc) http.Handler { return player(f) }

	mux.Handle("POST /v1/quests/{questId}/payments", once(h.Pay))
	mux.Handle("POST /v1/quests/{questId}/participations", once(h.Enroll))
	mux.Handle("GET /v1/quests/{questId}/progress", auth(h.Progress))
	mux.Handle("GET /v1/payments/{paymentId}", auth(h.GetPayment))
	mux.Handle("GET /v1/users/me/participations", auth(h.ListMine))

	mux.Handle("GET /v1/participations/{id}", auth(h.GetParticipation))
	mux.Handle("GET /v1/participations/{id}/summary", auth(h.Summary))
	mux.Handle("POST /v1/participations/{id}/start", auth(h.Start))
	mux.Handle("POST /v1/participations/{id}/locations", auth(h.RecordLocation))
	mux.Handle("POST /v1/participations/{id}/arrival", auth(h.ManualArrival))
	mux.Handle("GET /v1/participations/{id}/question", auth(h.CurrentQuestion))
	mux.Handle("POST /v1/participations/{id}/answers", auth(h.SubmitAnswer))
	mux.Handle("POST /v1/participations/{id}/question/ai", auth(h.RequestAIQuestion))
	mux.Handle("POST /v1/participations/{id}/cancel", auth(h.Cancel))
}

// Pay handles POST /v1/quests/{questId}/payments
func (h *GameHandler) Pay(w http.ResponseWriter, r *http.Request) {
	questID, ok := pathID(w, r, "questId")
	if !ok {
		return
	}

	payment, err := h.payments.ProcessPayment(r.Context(), middleware.GetUserID(r.Context()), questID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, payment, map[string]string{
		"self":     "/v1/payments/" + payment.ID,
		"register": "/v1/quests/" + questID + "/participations",
	})
}

// GetPayment handles GET /v1/payments/{paymentId}
func (h *GameHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// someone else's payment is reported as missing
	if payment.UserID != middleware.GetUserID(r.Context()) {
		WriteError(w, model.NewNotFoundError("payment"))
		return
	}
	WriteData(w, http.StatusOK, payment, nil)
}

// Enroll handles POST /v1/quests/{questId}/participations
func (h *GameHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	questID, ok := pathID(w, r, "questId")
	if !ok {
		return
	}

	var req model.RegisterParticipationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.enroll.RegisterForQuest(r.Context(), middleware.GetUserID(r.Context()), questID, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, p.ToView(), participationLinks(p.ID))
}

// ListMine handles GET /v1/users/me/participations
func (h *GameHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.enroll.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]model.ParticipationView, 0, len(list))
	for i := range list {
		views = append(views, list[i].ToView())
	}
	WriteData(w, http.StatusOK, views, nil)
}

// Progress handles GET /v1/quests/{questId}/progress
func (h *GameHandler) Progress(w http.ResponseWriter, r *http.Request) {
	questID, ok := pathID(w, r, "questId")
	if !ok {
		return
	}

	progress, err := h.game.Progress(r.Context(), middleware.GetUserID(r.Context()), questID)
	if err != nil {
		h.writeGameError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, progress, nil)
}

// GetParticipation handles GET /v1/participations/{id}
func (h *GameHandler) GetParticipation(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.GetParticipation(ctx, userID, id)
	})
}

// Summary handles GET /v1/participations/{id}/summary
func (h *GameHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.Summary(ctx, userID, id)
	})
}

// Start handles POST /v1/participations/{id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		p, err := h.game.StartQuest(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		return p.ToView(), nil
	})
}

// RecordLocation handles POST /v1/participations/{id}/locations
func (h *GameHandler) RecordLocation(w http.ResponseWriter, r *http.Request) {
	var req model.LocationSampleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.RecordLocation(ctx, userID, id, &req)
	})
}

// ManualArrival handles POST /v1/participations/{id}/arrival
func (h *GameHandler) ManualArrival(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.ManualArrival(ctx, userID, id)
	})
}

// CurrentQuestion handles GET /v1/participations/{id}/question
func (h *GameHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.CurrentQuestion(ctx, userID, id)
	})
}

// SubmitAnswer handles POST /v1/participations/{id}/answers
func (h *GameHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		WriteError(w, model.NewValidationError(errs))
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.SubmitAnswer(ctx, userID, id, req.AnswerInput)
	})
}

// RequestAIQuestion handles POST /v1/participations/{id}/question/ai
func (h *GameHandler) RequestAIQuestion(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.RequestAIQuestion(ctx, userID, id)
	})
}

// Cancel handles POST /v1/participations/{id}/cancel
func (h *GameHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, userID, id string) (interface{}, error) {
		return h.game.CancelParticipation(ctx, userID, id)
	})
}

// serve runs a participation-scoped call and writes its result
func (h *GameHandler) serve(w http.ResponseWriter, r *http.Request, status int, call func(ctx context.Context, userID, id string) (interface{}, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := call(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		h.writeGameError(w, r, err)
		return
	}
	WriteData(w, status, result, participationLinks(id))
}

// writeGameError reports disqualification with the violation limit
func (h *GameHandler) writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrDisqualified) {
		limit := h.game.Rules().MaxViolations
		WriteError(w, model.NewDisqualifiedError(limit, limit))
		return
	}
	writeServiceError(w, r, err)
}

func participationLinks(id string) map[string]string {
	base := "/v1/participations/" + id
	return map[string]string{
		"self":     base,
		"question": base + "/question",
		"stream":   base + "/stream",
	}
}
