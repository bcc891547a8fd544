package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/cityquest/internal/catalog"
	"github.com/forgo/cityquest/internal/model"
)

// SeederService loads the default catalog into an empty database
type SeederService struct {
	catalog    *catalog.Catalog
	cityRepo   CityRepository
	agreeRepo  AgreementRepository
	cities     *CityService
	locations  *LocationService
	questions  *QuestionService
	quests     *QuestService
	agreements *AgreementService
	now        func() time.Time
}

// SeederServiceConfig holds configuration for the seeder
type SeederServiceConfig struct {
	Catalog    *catalog.Catalog
	Cities     CityRepository
	Locations  LocationRepository
	Questions  QuestionRepository
	Quests     QuestRepository
	Agreements AgreementRepository
	Now        func() time.Time
}

// SeedResult contains the results of a seeding operation
type SeedResult struct {
	Skipped    bool     `json:"skipped"`
	Cities     int      `json:"cities"`
	Locations  int      `json:"locations"`
	Questions  int      `json:"questions"`
	Quests     int      `json:"quests"`
	Agreements int      `json:"agreements"`
	QuestIDs   []string `json:"quest_ids"`
	Duration   int64    `json:"duration_ms"`
}

// NewSeederService creates a new seeder service
func NewSeederService(cfg SeederServiceConfig) *SeederService {
	now := nowOrDefault(cfg.Now)
	return &SeederService{
		catalog:    cfg.Catalog,
		cityRepo:   cfg.Cities,
		agreeRepo:  cfg.Agreements,
		cities:     NewCityService(CityServiceConfig{Repo: cfg.Cities, Now: now}),
		locations:  NewLocationService(LocationServiceConfig{Repo: cfg.Locations, Questions: cfg.Questions, Now: now}),
		questions:  NewQuestionService(QuestionServiceConfig{Repo: cfg.Questions, Locations: cfg.Locations, Now: now}),
		quests:     NewQuestService(QuestServiceConfig{Repo: cfg.Quests, Locations: cfg.Locations, Questions: cfg.Questions, Now: now}),
		agreements: NewAgreementService(AgreementServiceConfig{Repo: cfg.Agreements, Now: now}),
		now:        now,
	}
}

// Seed writes the catalog. Agreements are added per missing type; the
// geography and quests are written only when no city exists yet.
func (s *SeederService) Seed(ctx context.Context) (*SeedResult, error) {
	start := s.now()
	result := &SeedResult{QuestIDs: []string{}}

	if err := s.seedAgreements(ctx, result); err != nil {
		return nil, err
	}

	count, err := s.cityRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count cities: %w", err)
	}
	if count > 0 {
		result.Skipped = true
		result.Duration = s.now().Sub(start).Milliseconds()
		slog.Info("catalog seed skipped, cities exist", "agreements", result.Agreements)
		return result, nil
	}

	if err := s.seedCities(ctx, result); err != nil {
		return nil, err
	}
	ids, err := s.seedLocations(ctx, result)
	if err != nil {
		return nil, err
	}
	for i := range s.catalog.Quests {
		q := &s.catalog.Quests[i]
		quest, err := s.quests.CreateQuest(ctx, q.Request(ids))
		if err != nil {
			return nil, fmt.Errorf("seed quest %q: %w", q.Title, err)
		}
		result.Quests++
		result.QuestIDs = append(result.QuestIDs, quest.ID)
	}

	result.Duration = s.now().Sub(start).Milliseconds()
	slog.Info("catalog seeded",
		"cities", result.Cities,
		"locations", result.Locations,
		"questions", result.Questions,
		"quests", result.Quests,
		"agreements", result.Agreements,
	)
	return result, nil
}

func (s *SeederService) seedAgreements(ctx context.Context, result *SeedResult) error {
	existing, err := s.agreeRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agreements: %w", err)
	}
	have := make(map[model.AgreementType]bool, len(existing))
	for _, a := range existing {
		have[a.Type] = true
	}

	for i := range s.catalog.Agreements {
		req := s.catalog.Agreements[i].Request()
		if have[req.Type] {
			continue
		}
		if _, err := s.agreements.CreateAgreement(ctx, req); err != nil {
			return fmt.Errorf("seed agreement %s: %w", req.Type, err)
		}
		result.Agreements++
	}
	return nil
}

func (s *SeederService) seedCities(ctx context.Context, result *SeedResult) error {
	for i := range s.catalog.Cities {
		c := &s.catalog.Cities[i]
		city, err := s.cities.CreateCity(ctx, c.Request())
		if err != nil {
			return fmt.Errorf("seed city %q: %w", c.Name, err)
		}
		for j := range c.Districts {
			if _, err := s.cities.CreateDistrict(ctx, city.ID, c.Districts[j].Request()); err != nil {
				return fmt.Errorf("seed district %q: %w", c.Districts[j].Name, err)
			}
		}
		result.Cities++
	}
	return nil
}

// seedLocations returns the stored location IDs keyed by catalog key
func (s *SeederService) seedLocations(ctx context.Context, result *SeedResult) (map[string]string, error) {
	ids := make(map[string]string, len(s.catalog.Locations))
	for i := range s.catalog.Locations {
		l := &s.catalog.Locations[i]
		loc, err := s.locations.CreateLocation(ctx, l.Request())
		if err != nil {
			return nil, fmt.Errorf("seed location %q: %w", l.Key, err)
		}
		ids[l.Key] = loc.ID
		result.Locations++

		for j := range l.Questions {
			if _, err := s.questions.CreateQuestion(ctx, loc.ID, l.Questions[j].Request()); err != nil {
				return nil, fmt.Errorf("seed question %d of %q: %w", j+1, l.Key, err)
			}
			result.Questions++
		}
	}
	return ids, nil
}
