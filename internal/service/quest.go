package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// QuestRepository defines the interface for quest storage
type QuestRepository interface {
	Create(ctx context.Context, quest *model.Quest) error
	GetByID(ctx context.Context, id string) (*model.Quest, error)
	List(ctx context.Context, filter model.QuestFilter) ([]model.Quest, error)
	Update(ctx context.Context, quest *model.Quest) error
	Delete(ctx context.Context, id string) error
}

// QuestService manages the quest catalog
type QuestService struct {
	repo      QuestRepository
	locations LocationRepository
	questions QuestionRepository
	now       func() time.Time
}

// QuestServiceConfig holds configuration for the quest service
type QuestServiceConfig struct {
	Repo      QuestRepository
	Locations LocationRepository
	Questions QuestionRepository
	Now       func() time.Time
}

// NewQuestService creates a new quest service
func NewQuestService(cfg QuestServiceConfig) *QuestService {
	return &QuestService{
		repo:      cfg.Repo,
		locations: cfg.Locations,
		questions: cfg.Questions,
		now:       nowOrDefault(cfg.Now),
	}
}

// ListQuests returns the active quests of a city, optionally narrowed to a
// district
func (s *QuestService) ListQuests(ctx context.Context, city, district string) ([]model.Quest, error) {
	return s.repo.List(ctx, model.QuestFilter{
		City:       strings.TrimSpace(city),
		District:   strings.TrimSpace(district),
		ActiveOnly: true,
	})
}

// ListAllQuests returns quests regardless of visibility
func (s *QuestService) ListAllQuests(ctx context.Context, city, district string) ([]model.Quest, error) {
	return s.repo.List(ctx, model.QuestFilter{City: city, District: district})
}

// GetQuest retrieves a quest including inactive ones
func (s *QuestService) GetQuest(ctx context.Context, id string) (*model.Quest, error) {
	quest, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, ErrQuestNotFound
	}
	return quest, nil
}

// GetActiveQuest retrieves a quest players can see
func (s *QuestService) GetActiveQuest(ctx context.Context, id string) (*model.Quest, error) {
	quest, err := s.GetQuest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quest.IsActive {
		return nil, ErrQuestNotFound
	}
	return quest, nil
}

// CreateQuest builds a quest from library locations. The start, final and
// route locations are copied into the quest with their current questions.
func (s *QuestService) CreateQuest(ctx context.Context, req *model.QuestRequest) (*model.Quest, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	quest := &model.Quest{CreatedAt: now, UpdatedAt: now}
	if err := s.applyRequest(ctx, req, quest); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, quest); err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}
	return quest, nil
}

// UpdateQuest rebuilds a quest and its route snapshot
func (s *QuestService) UpdateQuest(ctx context.Context, id string, req *model.QuestRequest) (*model.Quest, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	quest, err := s.GetQuest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyRequest(ctx, req, quest); err != nil {
		return nil, err
	}

	quest.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, quest); err != nil {
		return nil, fmt.Errorf("failed to update quest: %w", err)
	}
	return quest, nil
}

// PatchQuest edits the descriptive fields and visibility without touching the
// route
func (s *QuestService) PatchQuest(ctx context.Context, id string, patch *model.QuestPatch) (*model.Quest, error) {
	if err := validationError(patch.Validate()); err != nil {
		return nil, err
	}

	quest, err := s.GetQuest(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(quest)
	quest.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, quest); err != nil {
		return nil, fmt.Errorf("failed to update quest: %w", err)
	}
	return quest, nil
}

// SetActive shows or hides a quest in the catalog
func (s *QuestService) SetActive(ctx context.Context, id string, active bool) (*model.Quest, error) {
	return s.PatchQuest(ctx, id, &model.QuestPatch{IsActive: &active})
}

// DeleteQuest removes a quest
func (s *QuestService) DeleteQuest(ctx context.Context, id string) error {
	if _, err := s.GetQuest(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *QuestService) applyRequest(ctx context.Context, req *model.QuestRequest, quest *model.Quest) error {
	start, err := loadLocation(ctx, s.locations, s.questions, req.StartLocationID)
	if err != nil {
		return fmt.Errorf("start location: %w", err)
	}
	final, err := loadLocation(ctx, s.locations, s.questions, req.FinalLocationID)
	if err != nil {
		return fmt.Errorf("final location: %w", err)
	}

	route := make([]model.Location, 0, len(req.LocationIDs))
	for _, id := range req.LocationIDs {
		loc, err := loadLocation(ctx, s.locations, s.questions, id)
		if err != nil {
			return fmt.Errorf("route location %s: %w", id, err)
		}
		if len(loc.Questions) == 0 {
			return fmt.Errorf("%w: %s", ErrCheckpointNoQuiz, loc.Name)
		}
		route = append(route, *loc)
	}

	quest.Title = strings.TrimSpace(req.Title)
	quest.Description = req.Description
	quest.City = strings.TrimSpace(req.City)
	quest.District = strings.TrimSpace(req.District)
	quest.Price = req.Price
	quest.StartLocation = *start
	quest.FinalLocation = *final
	quest.Locations = route
	quest.LocationCount = len(route)
	quest.Conditions = req.Conditions
	quest.Media = req.Media
	if req.IsActive != nil {
		quest.IsActive = *req.IsActive
	} else if quest.ID == "" {
		quest.IsActive = true
	}
	return nil
}
