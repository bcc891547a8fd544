package service

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// QuestionRepository defines the interface for question storage
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id string) (*model.Question, error)
	ListByLocation(ctx context.Context, locationID string) ([]model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id string) error
}

// QuestionService manages the questions attached to library locations
type QuestionService struct {
	repo      QuestionRepository
	locations LocationRepository
	generator QuestionGenerator
	now       func() time.Time
}

// QuestionServiceConfig holds configuration for the question service
type QuestionServiceConfig struct {
	Repo      QuestionRepository
	Locations LocationRepository
	Generator QuestionGenerator
	Now       func() time.Time
}

// NewQuestionService creates a new question service
func NewQuestionService(cfg QuestionServiceConfig) *QuestionService {
	return &QuestionService{
		repo:      cfg.Repo,
		locations: cfg.Locations,
		generator: cfg.Generator,
		now:       nowOrDefault(cfg.Now),
	}
}

// ListByLocation returns the questions of a location
func (s *QuestionService) ListByLocation(ctx context.Context, locationID string) ([]model.Question, error) {
	if _, err := s.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.repo.ListByLocation(ctx, locationID)
}

// GetQuestion retrieves a question by ID
func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// CreateQuestion attaches a new question to a location
func (s *QuestionService) CreateQuestion(ctx context.Context, locationID string, req *model.QuestionRequest) (*model.Question, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := s.requireLocation(ctx, locationID); err != nil {
		return nil, err
	}

	q := &model.Question{LocationID: locationID, CreatedAt: s.now().UTC()}
	req.Apply(q)
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

// UpdateQuestion replaces a question
func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, req *model.QuestionRequest) (*model.Question, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(q)
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question
func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := s.GetQuestion(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// GenerateForLocation asks the generator for a question and stores it
func (s *QuestionService) GenerateForLocation(ctx context.Context, locationID string, difficulty model.Difficulty) (*model.Question, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}
	loc, err := s.requireLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	q, err := s.generator.Generate(ctx, loc, difficulty.Normalize())
	if err != nil {
		return nil, err
	}

	q.ID = ""
	q.LocationID = loc.ID
	q.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to store generated question: %w", err)
	}
	return q, nil
}

func (s *QuestionService) requireLocation(ctx context.Context, id string) (*model.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}
