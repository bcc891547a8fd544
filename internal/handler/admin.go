package handler

import (
	"context"
	"net/http"

	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/service"
)

// AdminUsers manages player accounts
type AdminUsers interface {
	ListUsers(ctx context.Context, limit, offset int) ([]model.User, int, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	AdminUpdateUser(ctx context.Context, id string, req *model.AdminUpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AdminQuests manages quests
type AdminQuests interface {
	ListAllQuests(ctx context.Context, city, district string) ([]model.Quest, error)
	GetQuest(ctx context.Context, id string) (*model.Quest, error)
	CreateQuest(ctx context.Context, req *model.QuestRequest) (*model.Quest, error)
	UpdateQuest(ctx context.Context, id string, req *model.QuestRequest) (*model.Quest, error)
	PatchQuest(ctx context.Context, id string, patch *model.QuestPatch) (*model.Quest, error)
	SetActive(ctx context.Context, id string, active bool) (*model.Quest, error)
	DeleteQuest(ctx context.Context, id string) error
}

// AdminLocations manages checkpoints
type AdminLocations interface {
	ListLocationsByCity(ctx context.Context, city, district string) ([]model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	CreateLocation(ctx context.Context, req *model.LocationRequest) (*model.Location, error)
	UpdateLocation(ctx context.Context, id string, req *model.LocationRequest) (*model.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

// AdminQuestions manages the question bank
type AdminQuestions interface {
	ListByLocation(ctx context.Context, locationID string) ([]model.Question, error)
	GetQuestion(ctx context.Context, id string) (*model.Question, error)
	CreateQuestion(ctx context.Context, locationID string, req *model.QuestionRequest) (*model.Question, error)
	UpdateQuestion(ctx context.Context, id string, req *model.QuestionRequest) (*model.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	GenerateForLocation(ctx context.Context, locationID string, difficulty model.Difficulty) (*model.Question, error)
}

// AdminCities manages cities and districts
type AdminCities interface {
	ListCities(ctx context.Context, all bool) ([]model.City, error)
	GetCity(ctx context.Context, id string) (*model.City, error)
	CreateCity(ctx context.Context, req *model.CityRequest) (*model.City, error)
	UpdateCity(ctx context.Context, id string, req *model.CityRequest) (*model.City, error)
	DeleteCity(ctx context.Context, id string) error
	CreateDistrict(ctx context.Context, cityID string, req *model.DistrictRequest) (*model.District, error)
}

// AdminAgreements manages the agreement catalog
type AdminAgreements interface {
	ListAgreements(ctx context.Context) ([]model.Agreement, error)
	GetAgreement(ctx context.Context, id string) (*model.Agreement, error)
	CreateAgreement(ctx context.Context, req *model.AgreementRequest) (*model.Agreement, error)
	UpdateAgreement(ctx context.Context, id string, req *model.AgreementRequest) (*model.Agreement, error)
	DeleteAgreement(ctx context.Context, id string) error
}

// AdminPayments lists payments
type AdminPayments interface {
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	ListPayments(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error)
}

// AdminParticipations lists participations
type AdminParticipations interface {
	ListParticipations(ctx context.Context, status model.ParticipationStatus, limit, offset int) ([]model.Participation, error)
}

// AdminNotifications inspects the notification queue
type AdminNotifications interface {
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	MarkSent(ctx context.Context, id string) (*model.Notification, error)
}

// AdminDispatcher runs a notification dispatch on demand. Runs never
// overlap with the scheduled ones.
type AdminDispatcher interface {
	RunOnce(ctx context.Context) (service.DispatchReport, error)
}

// AdminStatistics computes quest statistics
type AdminStatistics interface {
	QuestStatistics(ctx context.Context, questID string) (*model.QuestStatistics, error)
}

// AdminSeeder loads the seed catalog
type AdminSeeder interface {
	Seed(ctx context.Context) (*service.SeedResult, error)
}

// AdminHandlerConfig holds the services behind the admin panel
type AdminHandlerConfig struct {
	Users          AdminUsers
	Quests         AdminQuests
	Locations      AdminLocations
	Questions      AdminQuestions
	Cities         AdminCities
	Agreements     AdminAgreements
	Payments       AdminPayments
	Participations AdminParticipations
	Notifications  AdminNotifications
	Dispatcher     AdminDispatcher
	Statistics     AdminStatistics
	Seeder         AdminSeeder
}

// AdminHandler serves /v1/admin. Every route requires an admin token.
type AdminHandler struct {
	cfg AdminHandlerConfig
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(cfg AdminHandlerConfig) *AdminHandler {
	return &AdminHandler{cfg: cfg}
}

// RegisterRoutes registers admin routes behind the given guard
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, admin middleware.Middleware) {
	routes := map[string]http.HandlerFunc{
		"GET /v1/admin/users":         h.ListUsers,
		"GET /v1/admin/users/{id}":    h.GetUser,
		"PATCH /v1/admin/users/{id}":  h.UpdateUser,
		"DELETE /v1/admin/users/{id}": h.DeleteUser,

		"GET /v1/admin/quests":                  h.ListQuests,
		"POST /v1/admin/quests":                 h.CreateQuest,
		"GET /v1/admin/quests/{id}":             h.GetQuest,
		"PUT /v1/admin/quests/{id}":             h.UpdateQuest,
		"PATCH /v1/admin/quests/{id}":           h.PatchQuest,
		"DELETE /v1/admin/quests/{id}":          h.DeleteQuest,
		"POST /v1/admin/quests/{id}/activate":   h.ActivateQuest,
		"POST /v1/admin/quests/{id}/deactivate": h.DeactivateQuest,
		"GET /v1/admin/quests/{id}/statistics":  h.QuestStatistics,

		"GET /v1/admin/locations":                          h.ListLocations,
		"POST /v1/admin/locations":                         h.CreateLocation,
		"GET /v1/admin/locations/{id}":                     h.GetLocation,
		"PUT /v1/admin/locations/{id}":                     h.UpdateLocation,
		"DELETE /v1/admin/locations/{id}":                  h.DeleteLocation,
		"GET /v1/admin/locations/{id}/questions":           h.ListQuestions,
		"POST /v1/admin/locations/{id}/questions":          h.CreateQuestion,
		"POST /v1/admin/locations/{id}/questions/generate": h.GenerateQuestion,

		"GET /v1/admin/questions/{id}":    h.GetQuestion,
		"PUT /v1/admin/questions/{id}":    h.UpdateQuestion,
		"DELETE /v1/admin/questions/{id}": h.DeleteQuestion,

		"GET /v1/admin/cities":                 h.ListCities,
		"POST /v1/admin/cities":                h.CreateCity,
		"GET /v1/admin/cities/{id}":            h.GetCity,
		"PUT /v1/admin/cities/{id}":            h.UpdateCity,
		"DELETE /v1/admin/cities/{id}":         h.DeleteCity,
		"POST /v1/admin/cities/{id}/districts": h.CreateDistrict,

		"GET /v1/admin/agreements":         h.ListAgreements,
		"POST /v1/admin/agreements":        h.CreateAgreement,
		"GET /v1/admin/agreements/{id}":    h.GetAgreement,
		"PUT /v1/admin/agreements/{id}":    h.UpdateAgreement,
		"DELETE /v1/admin/agreements/{id}": h.DeleteAgreement,

		"GET /v1/admin/payments":      h.ListPayments,
		"GET /v1/admin/payments/{id}": h.GetPayment,

		"GET /v1/admin/participations": h.ListParticipations,

		"GET /v1/admin/notifications":            h.ListNotifications,
		"POST /v1/admin/notifications/{id}/sent": h.MarkNotificationSent,
		"POST /v1/admin/notifications/dispatch":  h.DispatchNotifications,

		"POST /v1/admin/seed": h.Seed,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, admin(fn))
	}
}

// ===== Users =====

// ListUsers handles GET /v1/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, total, err := h.cfg.Users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCollection(w, nonNil(users), &PaginationInfo{Limit: limit, Offset: offset, Total: total})
}

// GetUser handles GET /v1/admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Users.GetUser(r.Context(), id)
	})
}

// UpdateUser handles PATCH /v1/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req model.AdminUpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Users.AdminUpdateUser(r.Context(), id, &req)
	})
}

// DeleteUser handles DELETE /v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Users.DeleteUser)
}

// ===== Quests =====

// ListQuests handles GET /v1/admin/quests?city=&district=
func (h *AdminHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quests, err := h.cfg.Quests.ListAllQuests(r.Context(), q.Get("city"), q.Get("district"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(quests), nil)
}

// GetQuest handles GET /v1/admin/quests/{id}
func (h *AdminHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Quests.GetQuest(r.Context(), id)
	})
}

// CreateQuest handles POST /v1/admin/quests
func (h *AdminHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	var req model.QuestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Quests.CreateQuest(r.Context(), &req)
	})
}

// UpdateQuest handles PUT /v1/admin/quests/{id}
func (h *AdminHandler) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	var req model.QuestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Quests.UpdateQuest(r.Context(), id, &req)
	})
}

// PatchQuest handles PATCH /v1/admin/quests/{id}
func (h *AdminHandler) PatchQuest(w http.ResponseWriter, r *http.Request) {
	var patch model.QuestPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Quests.PatchQuest(r.Context(), id, &patch)
	})
}

// ActivateQuest handles POST /v1/admin/quests/{id}/activate
func (h *AdminHandler) ActivateQuest(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Quests.SetActive(r.Context(), id, true)
	})
}

// DeactivateQuest handles POST /v1/admin/quests/{id}/deactivate
func (h *AdminHandler) DeactivateQuest(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Quests.SetActive(r.Context(), id, false)
	})
}

// DeleteQuest handles DELETE /v1/admin/quests/{id}
func (h *AdminHandler) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Quests.DeleteQuest)
}

// QuestStatistics handles GET /v1/admin/quests/{id}/statistics
func (h *AdminHandler) QuestStatistics(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Statistics.QuestStatistics(r.Context(), id)
	})
}

// ===== Locations and questions =====

// ListLocations handles GET /v1/admin/locations?city=&district=
func (h *AdminHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("city") == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "city", Message: "city is required"}}))
		return
	}
	locations, err := h.cfg.Locations.ListLocationsByCity(r.Context(), q.Get("city"), q.Get("district"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(locations), nil)
}

// GetLocation handles GET /v1/admin/locations/{id}
func (h *AdminHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Locations.GetLocation(r.Context(), id)
	})
}

// CreateLocation handles POST /v1/admin/locations
func (h *AdminHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req model.LocationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Locations.CreateLocation(r.Context(), &req)
	})
}

// UpdateLocation handles PUT /v1/admin/locations/{id}
func (h *AdminHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req model.LocationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Locations.UpdateLocation(r.Context(), id, &req)
	})
}

// DeleteLocation handles DELETE /v1/admin/locations/{id}
func (h *AdminHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Locations.DeleteLocation)
}

// ListQuestions handles GET /v1/admin/locations/{id}/questions
func (h *AdminHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		questions, err := h.cfg.Questions.ListByLocation(r.Context(), id)
		return nonNil(questions), err
	})
}

// CreateQuestion handles POST /v1/admin/locations/{id}/questions
func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.QuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Questions.CreateQuestion(r.Context(), locationID, &req)
	})
}

// GenerateQuestion handles POST /v1/admin/locations/{id}/questions/generate?difficulty=
func (h *AdminHandler) GenerateQuestion(w http.ResponseWriter, r *http.Request) {
	locationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	difficulty := model.Difficulty(r.URL.Query().Get("difficulty"))
	if difficulty != "" && difficulty.Normalize() != difficulty {
		WriteError(w, model.NewValidationError([]model.FieldError{{Field: "difficulty", Message: "must be easy, medium or hard"}}))
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Questions.GenerateForLocation(r.Context(), locationID, difficulty.Normalize())
	})
}

// GetQuestion handles GET /v1/admin/questions/{id}
func (h *AdminHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Questions.GetQuestion(r.Context(), id)
	})
}

// UpdateQuestion handles PUT /v1/admin/questions/{id}
func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req model.QuestionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Questions.UpdateQuestion(r.Context(), id, &req)
	})
}

// DeleteQuestion handles DELETE /v1/admin/questions/{id}
func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Questions.DeleteQuestion)
}

// ===== Cities =====

// ListCities handles GET /v1/admin/cities, inactive cities included
func (h *AdminHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.cfg.Cities.ListCities(r.Context(), true)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(cities), nil)
}

// GetCity handles GET /v1/admin/cities/{id}
func (h *AdminHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Cities.GetCity(r.Context(), id)
	})
}

// CreateCity handles POST /v1/admin/cities
func (h *AdminHandler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var req model.CityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Cities.CreateCity(r.Context(), &req)
	})
}

// UpdateCity handles PUT /v1/admin/cities/{id}
func (h *AdminHandler) UpdateCity(w http.ResponseWriter, r *http.Request) {
	var req model.CityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Cities.UpdateCity(r.Context(), id, &req)
	})
}

// DeleteCity handles DELETE /v1/admin/cities/{id}
func (h *AdminHandler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Cities.DeleteCity)
}

// CreateDistrict handles POST /v1/admin/cities/{id}/districts
func (h *AdminHandler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	cityID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req model.DistrictRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Cities.CreateDistrict(r.Context(), cityID, &req)
	})
}

// ===== Agreements =====

// ListAgreements handles GET /v1/admin/agreements
func (h *AdminHandler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := h.cfg.Agreements.ListAgreements(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(agreements), nil)
}

// GetAgreement handles GET /v1/admin/agreements/{id}
func (h *AdminHandler) GetAgreement(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Agreements.GetAgreement(r.Context(), id)
	})
}

// CreateAgreement handles POST /v1/admin/agreements
func (h *AdminHandler) CreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req model.AgreementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created(w, r, func() (interface{}, error) {
		return h.cfg.Agreements.CreateAgreement(r.Context(), &req)
	})
}

// UpdateAgreement handles PUT /v1/admin/agreements/{id}
func (h *AdminHandler) UpdateAgreement(w http.ResponseWriter, r *http.Request) {
	var req model.AgreementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Agreements.UpdateAgreement(r.Context(), id, &req)
	})
}

// DeleteAgreement handles DELETE /v1/admin/agreements/{id}
func (h *AdminHandler) DeleteAgreement(w http.ResponseWriter, r *http.Request) {
	deleteByID(w, r, h.cfg.Agreements.DeleteAgreement)
}

// ===== Payments, participations, notifications =====

// ListPayments handles GET /v1/admin/payments?user_id=
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	payments, err := h.cfg.Payments.ListPayments(r.Context(), r.URL.Query().Get("user_id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCollection(w, nonNil(payments), &PaginationInfo{Limit: limit, Offset: offset})
}

// GetPayment handles GET /v1/admin/payments/{id}
func (h *AdminHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Payments.GetPayment(r.Context(), id)
	})
}

// ListParticipations handles GET /v1/admin/participations?status=
func (h *AdminHandler) ListParticipations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	status := model.ParticipationStatus(r.URL.Query().Get("status"))
	list, err := h.cfg.Participations.ListParticipations(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	views := make([]model.ParticipationView, 0, len(list))
	for i := range list {
		views = append(views, list[i].ToView())
	}
	WriteCollection(w, views, &PaginationInfo{Limit: limit, Offset: offset})
}

// ListNotifications handles GET /v1/admin/notifications?user_id=
func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	list, err := h.cfg.Notifications.ListNotifications(r.Context(), r.URL.Query().Get("user_id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCollection(w, nonNil(list), &PaginationInfo{Limit: limit, Offset: offset})
}

// MarkNotificationSent handles POST /v1/admin/notifications/{id}/sent
func (h *AdminHandler) MarkNotificationSent(w http.ResponseWriter, r *http.Request) {
	withID(w, r, func(id string) (interface{}, error) {
		return h.cfg.Notifications.MarkSent(r.Context(), id)
	})
}

// DispatchNotifications handles POST /v1/admin/notifications/dispatch
func (h *AdminHandler) DispatchNotifications(w http.ResponseWriter, r *http.Request) {
	report, err := h.cfg.Dispatcher.RunOnce(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, report, nil)
}

// ===== Seed =====

// Seed handles POST /v1/admin/seed
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	result, err := h.cfg.Seeder.Seed(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

// withID runs fn with the {id} path value and writes its result
func withID(w http.ResponseWriter, r *http.Request, fn func(id string) (interface{}, error)) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := fn(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, result, nil)
}

func created(w http.ResponseWriter, r *http.Request, fn func() (interface{}, error)) {
	result, err := fn()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, result, nil)
}

func deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id string) error) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := del(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteNoContent(w)
}
