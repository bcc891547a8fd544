package handler

import (
	"context"
	"net/http"

	"github.com/forgo/cityquest/internal/model"
)

// QuestCatalog is the public quest listing
type QuestCatalog interface {
	ListQuests(ctx context.Context, city, district string) ([]model.Quest, error)
	GetActiveQuest(ctx context.Context, id string) (*model.Quest, error)
}

// CityCatalog lists cities
type CityCatalog interface {
	ListCities(ctx context.Context, all bool) ([]model.City, error)
}

// AgreementCatalog lists the legal agreements
type AgreementCatalog interface {
	ListAgreements(ctx context.Context) ([]model.Agreement, error)
}

// CatalogHandler serves the public catalog. Answers are never exposed.
type CatalogHandler struct {
	quests     QuestCatalog
	cities     CityCatalog
	agreements AgreementCatalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(quests QuestCatalog, cities CityCatalog, agreements AgreementCatalog) *CatalogHandler {
	return &CatalogHandler{quests: quests, cities: cities, agreements: agreements}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/cities", h.ListCities)
	mux.HandleFunc("GET /v1/agreements", h.ListAgreements)
	mux.HandleFunc("GET /v1/quests", h.ListQuests)
	mux.HandleFunc("GET /v1/quests/{questId}", h.GetQuest)
}

// ListCities handles GET /v1/cities
func (h *CatalogHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.cities.ListCities(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(cities), nil)
}

// ListAgreements handles GET /v1/agreements
func (h *CatalogHandler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := h.agreements.ListAgreements(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, nonNil(agreements), nil)
}

// ListQuests handles GET /v1/quests?city=&district=
func (h *CatalogHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quests, err := h.quests.ListQuests(r.Context(), q.Get("city"), q.Get("district"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	public := make([]model.PublicQuest, 0, len(quests))
	for i := range quests {
		public = append(public, quests[i].ToPublic())
	}
	WriteData(w, http.StatusOK, public, nil)
}

// GetQuest handles GET /v1/quests/{questId}
func (h *CatalogHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	questID, ok := pathID(w, r, "questId")
	if !ok {
		return
	}

	quest, err := h.quests.GetActiveQuest(r.Context(), questID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, quest.ToPublic(), map[string]string{
		"pay":      "/v1/quests/" + questID + "/payments",
		"register": "/v1/quests/" + questID + "/participations",
	})
}

// nonNil keeps empty lists as [] in JSON
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
