package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
	"github.com/google/uuid"
)

// CityRepository defines the interface for city storage
type CityRepository interface {
	Create(ctx context.Context, city *model.City) error
	GetByID(ctx context.Context, id string) (*model.City, error)
	List(ctx context.Context, activeOnly bool) ([]model.City, error)
	Update(ctx context.Context, city *model.City) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// CityService manages cities and their districts
type CityService struct {
	repo CityRepository
	now  func() time.Time
}

// CityServiceConfig holds configuration for the city service
type CityServiceConfig struct {
	Repo CityRepository
	Now  func() time.Time
}

// NewCityService creates a new city service
func NewCityService(cfg CityServiceConfig) *CityService {
	return &CityService{
		repo: cfg.Repo,
		now:  nowOrDefault(cfg.Now),
	}
}

// ListCities returns cities, only active ones unless all is set
func (s *CityService) ListCities(ctx context.Context, all bool) ([]model.City, error) {
	return s.repo.List(ctx, !all)
}

// GetCity retrieves a city by ID
func (s *CityService) GetCity(ctx context.Context, id string) (*model.City, error) {
	city, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if city == nil {
		return nil, ErrCityNotFound
	}
	return city, nil
}

// CreateCity creates a city; names are unique
func (s *CityService) CreateCity(ctx context.Context, req *model.CityRequest) (*model.City, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	city := &model.City{
		Name:        strings.TrimSpace(req.Name),
		Coordinates: req.Coordinates,
		IsActive:    req.IsActive == nil || *req.IsActive,
		Districts:   []model.District{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, city); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrCityNameExists
		}
		return nil, fmt.Errorf("failed to create city: %w", err)
	}
	return city, nil
}

// UpdateCity replaces a city's name, center and visibility
func (s *CityService) UpdateCity(ctx context.Context, id string, req *model.CityRequest) (*model.City, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	city, err := s.GetCity(ctx, id)
	if err != nil {
		return nil, err
	}

	city.Name = strings.TrimSpace(req.Name)
	city.Coordinates = req.Coordinates
	if req.IsActive != nil {
		city.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, city); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrCityNameExists
		}
		return nil, fmt.Errorf("failed to update city: %w", err)
	}
	return city, nil
}

// DeleteCity removes a city
func (s *CityService) DeleteCity(ctx context.Context, id string) error {
	if _, err := s.GetCity(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CreateDistrict appends a district to a city
func (s *CityService) CreateDistrict(ctx context.Context, cityID string, req *model.DistrictRequest) (*model.District, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	city, err := s.GetCity(ctx, cityID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	for _, d := range city.Districts {
		if strings.EqualFold(d.Name, name) {
			return nil, fmt.Errorf("%w: district %q already exists", ErrCityNameExists, name)
		}
	}

	district := model.District{
		ID:          uuid.New().String(),
		Name:        name,
		CityID:      city.ID,
		Coordinates: req.Coordinates,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	city.Districts = append(city.Districts, district)
	if err := s.repo.Update(ctx, city); err != nil {
		return nil, fmt.Errorf("failed to add district: %w", err)
	}
	return &district, nil
}
