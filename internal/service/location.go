package service

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// LocationRepository defines the interface for location storage
type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) error
	GetByID(ctx context.Context, id string) (*model.Location, error)
	ListByCity(ctx context.Context, city, district string) ([]model.Location, error)
	Update(ctx context.Context, loc *model.Location) error
	Delete(ctx context.Context, id string) error
}

// LocationService manages the library of points quests are built from
type LocationService struct {
	repo      LocationRepository
	questions QuestionRepository
	now       func() time.Time
}

// LocationServiceConfig holds configuration for the location service
type LocationServiceConfig struct {
	Repo      LocationRepository
	Questions QuestionRepository
	Now       func() time.Time
}

// NewLocationService creates a new location service
func NewLocationService(cfg LocationServiceConfig) *LocationService {
	return &LocationService{
		repo:      cfg.Repo,
		questions: cfg.Questions,
		now:       nowOrDefault(cfg.Now),
	}
}

// ListLocationsByCity returns a city's locations, optionally for one district,
// each with its questions
func (s *LocationService) ListLocationsByCity(ctx context.Context, city, district string) ([]model.Location, error) {
	locations, err := s.repo.ListByCity(ctx, city, district)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		qs, err := s.questions.ListByLocation(ctx, locations[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list questions of %s: %w", locations[i].ID, err)
		}
		locations[i].Questions = qs
	}
	return locations, nil
}

// GetLocation retrieves a location with its questions
func (s *LocationService) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	return loadLocation(ctx, s.repo, s.questions, id)
}

// CreateLocation adds a location to the library
func (s *LocationService) CreateLocation(ctx context.Context, req *model.LocationRequest) (*model.Location, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	loc := &model.Location{CreatedAt: s.now().UTC()}
	req.Apply(loc)
	if err := s.repo.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return loc, nil
}

// UpdateLocation replaces a library location. Quests keep the snapshot they
// were saved with.
func (s *LocationService) UpdateLocation(ctx context.Context, id string, req *model.LocationRequest) (*model.Location, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Apply(loc)
	if err := s.repo.Update(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return loc, nil
}

// DeleteLocation removes a location and its questions
func (s *LocationService) DeleteLocation(ctx context.Context, id string) error {
	if _, err := s.GetLocation(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func loadLocation(ctx context.Context, locations LocationRepository, questions QuestionRepository, id string) (*model.Location, error) {
	loc, err := locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrLocationNotFound
	}

	qs, err := questions.ListByLocation(ctx, loc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	loc.Questions = qs
	return loc, nil
}
