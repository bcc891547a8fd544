package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

// UserService handles player registration and profile business logic
type UserService struct {
	users      UserRepository
	cities     CityRepository
	agreements AgreementRepository
	geo        *GeoService
	now        func() time.Time
}

// UserServiceConfig holds configuration for the user service
type UserServiceConfig struct {
	Users      UserRepository
	Cities     CityRepository
	Agreements AgreementRepository
	Geo        *GeoService
	Now        func() time.Time
}

// NewUserService creates a new user service
func NewUserService(cfg UserServiceConfig) *UserService {
	geo := cfg.Geo
	if geo == nil {
		geo = NewGeoService()
	}
	return &UserService{
		users:      cfg.Users,
		cities:     cfg.Cities,
		agreements: cfg.Agreements,
		geo:        geo,
		now:        nowOrDefault(cfg.Now),
	}
}

// Register creates the player behind a verified Telegram account. Every
// agreement starts unsigned.
func (s *UserService) Register(ctx context.Context, telegramID string, req *model.RegisterUserRequest) (*model.User, error) {
	if telegramID == "" {
		return nil, ErrTelegramIDRequired
	}
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up telegram account: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	now := s.now().UTC()
	user := &model.User{
		TelegramID:      telegramID,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		Age:             req.Age,
		Phone:           model.NormalizePhone(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		RegisteredAt:    now,
		UpdatedAt:       now,
		QuestsCompleted: []string{},
		Role:            model.UserRoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetByTelegramID retrieves a user by Telegram account, nil if unregistered
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	return s.users.GetByTelegramID(ctx, telegramID)
}

// UpdateProfile applies a partial profile update
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateUserRequest) (*model.User, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	req.Apply(user)
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// UpdateLocation stores the player's shared position. Missing city or
// district labels are resolved to the nearest active ones.
func (s *UserService) UpdateLocation(ctx context.Context, userID string, req *model.UpdateLocationRequest) (*model.User, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := &model.UserLocation{
		Lat:      req.Lat,
		Lng:      req.Lng,
		City:     strings.TrimSpace(req.City),
		District: strings.TrimSpace(req.District),
	}

	if (loc.City == "" || loc.District == "") && s.cities != nil {
		cities, err := s.cities.List(ctx, true)
		if err != nil {
			return nil, fmt.Errorf("failed to list cities: %w", err)
		}
		city, district := s.geo.NearestCity(loc.Coordinates(), cities)
		if loc.City == "" && city != nil {
			loc.City = city.Name
		}
		if loc.District == "" && district != nil && (city == nil || city.Name == loc.City) {
			loc.District = district.Name
		}
	}

	user.Location = loc
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// SignAgreements records the player's consent. Every agreement required for
// the player must be accepted in the same request.
func (s *UserService) SignAgreements(ctx context.Context, userID string, flags model.AgreementFlags) (*model.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.agreements.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	if missing := model.MissingAgreements(catalog, user, flags); len(missing) > 0 {
		return nil, &AgreementsMissingError{Missing: missing}
	}

	user.AgreementsSigned = flags
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users and the total count
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	limit, offset = normalizePage(limit, offset)

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// AdminUpdateUser edits any profile, including the role
func (s *UserService) AdminUpdateUser(ctx context.Context, id string, req *model.AdminUpdateUserRequest) (*model.User, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	req.UpdateUserRequest.Apply(user)
	if req.Role != nil {
		user.Role = *req.Role
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}
