package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// ParticipationRepository defines the interface for participation storage
type ParticipationRepository interface {
	Create(ctx context.Context, p *model.Participation) error
	GetByID(ctx context.Context, id string) (*model.Participation, error)
	Update(ctx context.Context, p *model.Participation) error
	UpdateWithUser(ctx context.Context, p *model.Participation, u *model.User) error
	ActiveForUser(ctx context.Context, userID string) (*model.Participation, error)
	ListByUser(ctx context.Context, userID, questID string) ([]model.Participation, error)
	ListByQuest(ctx context.Context, questID string) ([]model.Participation, error)
	List(ctx context.Context, status model.ParticipationStatus, limit, offset int) ([]model.Participation, error)
}

// ReminderScheduler plans the pre-start reminders of a participation
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation, start time.Time) ([]model.Notification, error)
}

// ParticipationService enrolls players into paid quests
type ParticipationService struct {
	repo               ParticipationRepository
	quests             QuestRepository
	users              UserRepository
	payments           PaymentRepository
	agreements         AgreementRepository
	reminders          ReminderScheduler
	defaultStartOffset time.Duration
	now                func() time.Time
}

// ParticipationServiceConfig holds configuration for the participation service
type ParticipationServiceConfig struct {
	Repo               ParticipationRepository
	Quests             QuestRepository
	Users              UserRepository
	Payments           PaymentRepository
	Agreements         AgreementRepository
	Reminders          ReminderScheduler
	DefaultStartOffset time.Duration
	Now                func() time.Time
}

// NewParticipationService creates a new participation service
func NewParticipationService(cfg ParticipationServiceConfig) *ParticipationService {
	offset := cfg.DefaultStartOffset
	if offset <= 0 {
		offset = 24 * time.Hour
	}
	return &ParticipationService{
		repo:               cfg.Repo,
		quests:             cfg.Quests,
		users:              cfg.Users,
		payments:           cfg.Payments,
		agreements:         cfg.Agreements,
		reminders:          cfg.Reminders,
		defaultStartOffset: offset,
		now:                nowOrDefault(cfg.Now),
	}
}

// RegisterForQuest enrolls the player using a completed payment
func (s *ParticipationService) RegisterForQuest(ctx context.Context, userID, questID string, req *model.RegisterParticipationRequest) (*model.Participation, error) {
	if err := validationError(req.Validate()); err != nil {
		return nil, err
	}

	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, ErrQuestNotFound
	}
	if !quest.IsActive {
		return nil, ErrQuestInactive
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotRegistered
	}
	if user.Location == nil {
		return nil, ErrLocationRequired
	}

	catalog, err := s.agreements.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	if missing := model.MissingAgreements(catalog, user, user.AgreementsSigned); len(missing) > 0 {
		return nil, &AgreementsMissingError{Missing: missing}
	}

	payment, err := s.payments.GetByID(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !payment.IsUsableFor(user.ID, quest.ID) {
		return nil, ErrPaymentNotUsable
	}

	active, err := s.repo.ActiveForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadyParticipating
	}

	previous, err := s.repo.ListByUser(ctx, user.ID, quest.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range previous {
		if p.PaymentID == payment.ID {
			return nil, ErrPaymentAlreadyIn
		}
	}

	now := s.now().UTC()
	start := now.Add(s.defaultStartOffset)
	if req.ScheduledStart != nil {
		start = req.ScheduledStart.UTC()
	}

	p := &model.Participation{
		UserID:             user.ID,
		QuestID:            quest.ID,
		Status:             model.ParticipationRegistered,
		Stage:              model.StageWaiting,
		RegistrationTime:   now,
		ScheduledStart:     &start,
		PaymentID:          payment.ID,
		Answers:            []model.AnswerRecord{},
		SpeedViolations:    []model.SpeedViolation{},
		CompletedLocations: []string{},
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create participation: %w", err)
	}

	user.CurrentQuest = p.ID
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		// Undo the enrollment so the payment stays usable.
		p.Status = model.ParticipationCancelled
		p.EndTime = &now
		if undoErr := s.repo.Update(ctx, p); undoErr != nil {
			slog.Error("failed to roll back participation", "participation_id", p.ID, "error", undoErr)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if s.reminders != nil && start.After(now) {
		if _, err := s.reminders.ScheduleReminders(ctx, user, quest, p, start); err != nil {
			slog.Warn("failed to schedule reminders", "participation_id", p.ID, "error", err)
		}
	}

	slog.Info("participation registered",
		"participation_id", p.ID,
		"user_id", user.ID,
		"quest_id", quest.ID,
		"scheduled_start", start,
	)
	return p, nil
}

// ListMine returns the player's participations, newest first
func (s *ParticipationService) ListMine(ctx context.Context, userID string) ([]model.Participation, error) {
	return s.repo.ListByUser(ctx, userID, "")
}

// ListParticipations returns participations for the admin panel
func (s *ParticipationService) ListParticipations(ctx context.Context, status model.ParticipationStatus, limit, offset int) ([]model.Participation, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, status, limit, offset)
}
