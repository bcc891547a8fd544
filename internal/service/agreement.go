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

// AgreementRepository defines the interface for agreement storage
type AgreementRepository interface {
	Create(ctx context.Context, a *model.Agreement) error
	GetByID(ctx context.Context, id string) (*model.Agreement, error)
	List(ctx context.Context) ([]model.Agreement, error)
	Update(ctx context.Context, a *model.Agreement) error
	Delete(ctx context.Context, id string) error
}

// AgreementService manages the legal documents players sign
type AgreementService struct {
	repo AgreementRepository
	now  func() time.Time
}

// AgreementServiceConfig holds configuration for the agreement service
type AgreementServiceConfig struct {
	Repo AgreementRepository
	Now  func() time.Time
}

// NewAgreementService creates a new agreement service
func NewAgreementService(cfg AgreementServiceConfig) *AgreementService {
	return &AgreementService{
		repo: cfg.Repo,
		now:  nowOrDefault(cfg.Now),
	}
}

// ListAgreements returns the whole catalog
func (s *AgreementService) ListAgreements(ctx context.Context) ([]model.Agreement, error) {
	return s.repo.List(ctx)
}

// GetAgreement retrieves an agreement by ID
func (s *AgreementService) GetAgreement(ctx context.Context, id string) (*model.Agreement, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAgreementNotFound
	}
	return a, nil
}

// CreateAgreement adds an agreement; one per type
func (s *AgreementService) CreateAgreement(ctx context.Context, req *model.AgreementRequest) (*model.Agreement, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	a := &model.Agreement{UpdatedAt: s.now().UTC()}
	applyAgreement(req, a)
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAgreementExists
		}
		return nil, fmt.Errorf("failed to create agreement: %w", err)
	}
	return a, nil
}

// UpdateAgreement replaces an agreement and bumps updated_at
func (s *AgreementService) UpdateAgreement(ctx context.Context, id string, req *model.AgreementRequest) (*model.Agreement, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	a, err := s.GetAgreement(ctx, id)
	if err != nil {
		return nil, err
	}

	applyAgreement(req, a)
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAgreementExists
		}
		return nil, fmt.Errorf("failed to update agreement: %w", err)
	}
	return a, nil
}

// DeleteAgreement removes an agreement
func (s *AgreementService) DeleteAgreement(ctx context.Context, id string) error {
	if _, err := s.GetAgreement(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func applyAgreement(req *model.AgreementRequest, a *model.Agreement) {
	a.Type = req.Type
	a.Title = strings.TrimSpace(req.Title)
	a.Content = req.Content
	a.IsRequired = req.IsRequired
	a.Version = strings.TrimSpace(req.Version)
}
