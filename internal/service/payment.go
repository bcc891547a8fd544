package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/google/uuid"
)

// PaymentRepository defines the interface for payment storage
type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
	List(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error)
}

// PaymentGateway charges a pending payment and returns the provider's
// transaction ID
type PaymentGateway interface {
	Charge(ctx context.Context, p *model.Payment) (string, error)
}

// PaymentNotifier is told about successful payments
type PaymentNotifier interface {
	PaymentSucceeded(ctx context.Context, u *model.User, quest *model.Quest, p *model.Payment) error
}

// SimulatedGateway approves every charge immediately
type SimulatedGateway struct{}

// Charge implements PaymentGateway
func (SimulatedGateway) Charge(ctx context.Context, p *model.Payment) (string, error) {
	return uuid.New().String(), nil
}

// PaymentService handles quest purchases
type PaymentService struct {
	repo     PaymentRepository
	quests   QuestRepository
	users    UserRepository
	gateway  PaymentGateway
	notifier PaymentNotifier
	metrics  Metrics
	currency string
	method   model.PaymentMethod
	now      func() time.Time
}

// PaymentServiceConfig holds configuration for the payment service
type PaymentServiceConfig struct {
	Repo     PaymentRepository
	Quests   QuestRepository
	Users    UserRepository
	Gateway  PaymentGateway
	Notifier PaymentNotifier
	Metrics  Metrics
	Currency string
	Method   model.PaymentMethod
	Now      func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	s := &PaymentService{
		repo:     cfg.Repo,
		quests:   cfg.Quests,
		users:    cfg.Users,
		gateway:  cfg.Gateway,
		notifier: cfg.Notifier,
		metrics:  metricsOrNop(cfg.Metrics),
		currency: cfg.Currency,
		method:   cfg.Method,
		now:      nowOrDefault(cfg.Now),
	}
	if s.gateway == nil {
		s.gateway = SimulatedGateway{}
	}
	if s.currency == "" {
		s.currency = "RUB"
	}
	if s.method == "" {
		s.method = model.PaymentTelegram
	}
	return s
}

// ProcessPayment charges the player the quest price
func (s *PaymentService) ProcessPayment(ctx context.Context, userID, questID string) (*model.Payment, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotRegistered
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

	payment := &model.Payment{
		UserID:        user.ID,
		QuestID:       quest.ID,
		Amount:        quest.Price,
		Currency:      s.currency,
		Status:        model.PaymentPending,
		PaymentMethod: s.method,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	txID, chargeErr := s.gateway.Charge(ctx, payment)
	if chargeErr != nil {
		payment.Status = model.PaymentFailed
		if err := s.repo.Update(ctx, payment); err != nil {
			slog.Error("failed to store declined payment", "payment_id", payment.ID, "error", err)
		}
		s.metrics.PaymentProcessed(string(model.PaymentFailed))
		slog.Warn("payment declined", "payment_id", payment.ID, "user_id", user.ID, "error", chargeErr)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, chargeErr)
	}

	completedAt := s.now().UTC()
	payment.Status = model.PaymentCompleted
	payment.TransactionID = txID
	payment.CompletedAt = &completedAt
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}
	s.metrics.PaymentProcessed(string(model.PaymentCompleted))

	if s.notifier != nil {
		if err := s.notifier.PaymentSucceeded(ctx, user, quest, payment); err != nil {
			slog.Warn("failed to enqueue payment notification", "payment_id", payment.ID, "error", err)
		}
	}
	return payment, nil
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPaymentNotFound
	}
	return p, nil
}

// ListPayments returns payments newest first, optionally for one user
func (s *PaymentService) ListPayments(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, userID, limit, offset)
}
