package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/service"
)

type mockCatalog struct {
	quests     []model.Quest
	cities     []model.City
	agreements []model.Agreement
	gotCity    string
	gotAll     bool
}

func (m *mockCatalog) ListQuests(ctx context.Context, city, district string) ([]model.Quest, error) {
	m.gotCity = city
	return m.quests, nil
}

func (m *mockCatalog) GetActiveQuest(ctx context.Context, id string) (*model.Quest, error) {
	for i := range m.quests {
		if m.quests[i].ID == id && m.quests[i].IsActive {
			return &m.quests[i], nil
		}
	}
	return nil, service.ErrQuestNotFound
}

func (m *mockCatalog) ListCities(ctx context.Context, all bool) ([]model.City, error) {
	m.gotAll = all
	return m.cities, nil
}

func (m *mockCatalog) ListAgreements(ctx context.Context) ([]model.Agreement, error) {
	return m.agreements, nil
}

func newTestQuest() model.Quest {
	question := model.Question{
		ID:           "question:1",
		Text:         "Сколько башен у Кремля?",
		Type:         model.QuestionMultipleChoice,
		Options:      []string{"18", "19", "20", "21"},
		CorrectIndex: intPtr(2),
	}
	checkpoint := model.Location{
		ID:        "location:spasskaya",
		Name:      "Спасская башня",
		City:      "Москва",
		Questions: []model.Question{question},
	}
	return model.Quest{
		ID:            "quest:1",
		Title:         "Тайны Старого Города",
		City:          "Москва",
		LocationCount: 1,
		Price:         1500,
		Locations:     []model.Location{checkpoint},
		IsActive:      true,
	}
}

func newCatalogMux(c *mockCatalog) *http.ServeMux {
	mux := http.NewServeMux()
	NewCatalogHandler(c, c, c).RegisterRoutes(mux)
	return mux
}

func TestListQuests_HidesAnswers(t *testing.T) {
	t.Parallel()

	catalog := &mockCatalog{quests: []model.Quest{newTestQuest()}}
	rr := serve(newCatalogMux(catalog), makeJSONRequest(http.MethodGet, "/v1/quests?city=%D0%9C%D0%BE%D1%81%D0%BA%D0%B2%D0%B0", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if catalog.gotCity != "Москва" {
		t.Errorf("city filter not passed: %q", catalog.gotCity)
	}
	body := rr.Body.String()
	for _, leak := range []string{"correct_index", "Сколько башен", "questions"} {
		if strings.Contains(body, leak) {
			t.Errorf("catalog leaks %q: %s", leak, body)
		}
	}
	var quests []model.PublicQuest
	decodeData(t, rr.Body.Bytes(), &quests)
	if len(quests) != 1 || quests[0].Locations[0].Name != "Спасская башня" {
		t.Errorf("unexpected quests %+v", quests)
	}
}

func TestListQuests_EmptyIsArray(t *testing.T) {
	t.Parallel()

	rr := serve(newCatalogMux(&mockCatalog{}), makeJSONRequest(http.MethodGet, "/v1/quests", nil))
	if !strings.Contains(rr.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestGetQuest(t *testing.T) {
	t.Parallel()

	inactive := newTestQuest()
	inactive.ID = "quest:2"
	inactive.IsActive = false
	catalog := &mockCatalog{quests: []model.Quest{newTestQuest(), inactive}}
	mux := newCatalogMux(catalog)

	rr := serve(mux, makeJSONRequest(http.MethodGet, "/v1/quests/quest:1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "correct_index") {
		t.Error("quest detail must not expose answers")
	}
	links := decodeData(t, rr.Body.Bytes(), nil)
	if links["pay"] != "/v1/quests/quest:1/payments" {
		t.Errorf("unexpected links %v", links)
	}

	if rr := serve(mux, makeJSONRequest(http.MethodGet, "/v1/quests/quest:2", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("inactive quest should be 404, got %d", rr.Code)
	}
}

func TestListCities_ActiveOnly(t *testing.T) {
	t.Parallel()

	catalog := &mockCatalog{cities: []model.City{{ID: "city:msk", Name: "Москва", IsActive: true}}}
	rr := serve(newCatalogMux(catalog), makeJSONRequest(http.MethodGet, "/v1/cities", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if catalog.gotAll {
		t.Error("public listing must exclude inactive cities")
	}
}

func TestListAgreements(t *testing.T) {
	t.Parallel()

	catalog := &mockCatalog{agreements: []model.Agreement{{ID: "agreement:1", Type: "personal_data", IsRequired: true}}}
	rr := serve(newCatalogMux(catalog), makeJSONRequest(http.MethodGet, "/v1/agreements", nil))

	var agreements []model.Agreement
	decodeData(t, rr.Body.Bytes(), &agreements)
	if len(agreements) != 1 || !agreements[0].IsRequired {
		t.Errorf("unexpected agreements %+v", agreements)
	}
}
