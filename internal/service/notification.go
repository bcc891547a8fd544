package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	Update(ctx context.Context, n *model.Notification) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	DeletePendingForParticipation(ctx context.Context, participationID string) error
}

// Sender delivers a notification over one channel
type Sender interface {
	Send(ctx context.Context, u *model.User, n *model.Notification) error
}

const reminderTitle = "Напоминание о квесте"

// DispatchReport summarizes one dispatch run
type DispatchReport struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Retrying  int `json:"retrying"`
	GaveUp    int `json:"gave_up"`
}

// NotificationService schedules and delivers player notifications
type NotificationService struct {
	repo        NotificationRepository
	users       UserRepository
	senders     map[model.Channel]Sender
	batchSize   int
	maxAttempts int
	metrics     Metrics
	now         func() time.Time
}

// NotificationServiceConfig holds configuration for the notification service
type NotificationServiceConfig struct {
	Repo        NotificationRepository
	Users       UserRepository
	Senders     map[model.Channel]Sender
	BatchSize   int
	MaxAttempts int
	Metrics     Metrics
	Now         func() time.Time
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg NotificationServiceConfig) *NotificationService {
	s := &NotificationService{
		repo:        cfg.Repo,
		users:       cfg.Users,
		senders:     cfg.Senders,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		metrics:     metricsOrNop(cfg.Metrics),
		now:         nowOrDefault(cfg.Now),
	}
	if s.senders == nil {
		s.senders = map[model.Channel]Sender{}
	}
	if s.batchSize <= 0 {
		s.batchSize = 100
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	return s
}

// ScheduleReminders creates the 24h, 3h and 1h reminders before start.
// Reminders whose time has already passed are skipped.
func (s *NotificationService) ScheduleReminders(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation, start time.Time) ([]model.Notification, error) {
	now := s.now().UTC()
	start = start.UTC()
	startLoc := quest.StartLocation

	planned := []model.Notification{
		{
			Type:         model.NotificationReminder24h,
			Channels:     []model.Channel{model.ChannelTelegram, model.ChannelSMS, model.ChannelEmail},
			ScheduledFor: start.Add(-24 * time.Hour),
			Content: model.NotificationContent{
				Title:           reminderTitle,
				Message:         fmt.Sprintf("До начала квеста \"%s\" осталось 24 часа", quest.Title),
				QuestConditions: quest.Conditions,
			},
		},
		{
			Type:         model.NotificationReminder3h,
			Channels:     []model.Channel{model.ChannelTelegram, model.ChannelSMS},
			ScheduledFor: start.Add(-3 * time.Hour),
			Content: model.NotificationContent{
				Title:         reminderTitle,
				Message:       fmt.Sprintf("До начала квеста \"%s\" осталось 3 часа", quest.Title),
				StartLocation: startLoc.Name,
			},
		},
		{
			Type:         model.NotificationReminder1h,
			Channels:     []model.Channel{model.ChannelTelegram},
			ScheduledFor: start.Add(-time.Hour),
			Content: model.NotificationContent{
				Title:         reminderTitle,
				Message:       fmt.Sprintf("До начала квеста \"%s\" остался 1 час", quest.Title),
				StartLocation: startLoc.Name + " (" + formatCoord(startLoc.Coordinates.Lat) + ", " + formatCoord(startLoc.Coordinates.Lng) + ")",
			},
		},
	}

	created := make([]model.Notification, 0, len(planned))
	for i := range planned {
		n := planned[i]
		if n.ScheduledFor.Before(now) {
			continue
		}
		n.UserID = u.ID
		n.QuestID = quest.ID
		n.ParticipationID = p.ID
		n.CreatedAt = now
		if err := s.repo.Create(ctx, &n); err != nil {
			return created, fmt.Errorf("failed to schedule %s: %w", n.Type, err)
		}
		created = append(created, n)
	}
	return created, nil
}

// Enqueue stores a notification; a zero schedule means now
func (s *NotificationService) Enqueue(ctx context.Context, n *model.Notification) error {
	now := s.now().UTC()
	if n.ScheduledFor.IsZero() {
		n.ScheduledFor = now
	}
	if len(n.Channels) == 0 {
		n.Channels = []model.Channel{model.ChannelTelegram}
	}
	n.CreatedAt = now
	return s.repo.Create(ctx, n)
}

// PaymentSucceeded implements PaymentNotifier
func (s *NotificationService) PaymentSucceeded(ctx context.Context, u *model.User, quest *model.Quest, p *model.Payment) error {
	return s.Enqueue(ctx, &model.Notification{
		UserID:  u.ID,
		QuestID: quest.ID,
		Type:    model.NotificationPaymentSuccess,
		Content: model.NotificationContent{
			Title:   "Оплата прошла успешно",
			Message: fmt.Sprintf("Квест \"%s\" оплачен: %d %s", quest.Title, p.Amount, p.Currency),
		},
	})
}

// QuestStarted implements GameNotifier
func (s *NotificationService) QuestStarted(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation) error {
	return s.Enqueue(ctx, &model.Notification{
		UserID:          u.ID,
		QuestID:         quest.ID,
		ParticipationID: p.ID,
		Type:            model.NotificationQuestStart,
		Content: model.NotificationContent{
			Title:           "Квест начался",
			Message:         fmt.Sprintf("Квест \"%s\" начался. Первая точка: %s", quest.Title, firstCheckpointName(quest)),
			QuestConditions: quest.Conditions,
		},
	})
}

// QuestCompleted implements GameNotifier
func (s *NotificationService) QuestCompleted(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation) error {
	return s.Enqueue(ctx, &model.Notification{
		UserID:          u.ID,
		QuestID:         quest.ID,
		ParticipationID: p.ID,
		Type:            model.NotificationQuestComplete,
		Content: model.NotificationContent{
			Title:   "Квест пройден",
			Message: fmt.Sprintf("Вы прошли квест \"%s\" и набрали %d очков", quest.Title, p.TotalScore),
		},
	})
}

// CancelReminders drops the unsent reminders of a participation
func (s *NotificationService) CancelReminders(ctx context.Context, participationID string) error {
	return s.repo.DeletePendingForParticipation(ctx, participationID)
}

// DispatchDue sends every due notification over each of its channels. A
// channel that fails is retried on the next run until the attempt limit.
func (s *NotificationService) DispatchDue(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport
	now := s.now().UTC()

	due, err := s.repo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list due notifications: %w", err)
	}

	users := make(map[string]*model.User)
	for i := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n := &due[i]
		report.Processed++

		u, ok := users[n.UserID]
		if !ok {
			u, err = s.users.GetByID(ctx, n.UserID)
			if err != nil {
				return report, fmt.Errorf("failed to load user %s: %w", n.UserID, err)
			}
			users[n.UserID] = u
		}

		var failures []string
		if u == nil {
			// deleted user, no retry
			failures = append(failures, ErrUserNotFound.Error())
			n.Attempts = s.maxAttempts - 1
		} else {
			failures = s.deliver(ctx, u, n)
		}

		switch {
		case len(failures) == 0:
			n.Sent = true
			n.SentAt = &now
			n.LastError = ""
			report.Sent++
		default:
			n.Attempts++
			n.LastError = strings.Join(failures, "; ")
			if n.Attempts >= s.maxAttempts {
				n.Sent = true
				n.SentAt = &now
				report.GaveUp++
				slog.Warn("giving up on notification", "notification_id", n.ID, "attempts", n.Attempts, "error", n.LastError)
			} else {
				report.Retrying++
			}
		}

		if err := s.repo.Update(ctx, n); err != nil {
			return report, fmt.Errorf("failed to update notification %s: %w", n.ID, err)
		}
	}

	return report, nil
}

func (s *NotificationService) deliver(ctx context.Context, u *model.User, n *model.Notification) []string {
	var failures []string
	for _, ch := range n.Channels {
		if n.IsDelivered(ch) {
			continue
		}
		sender, ok := s.senders[ch]
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: %v", ch, ErrNoSender))
			s.metrics.NotificationDelivered(string(ch), false)
			continue
		}
		if err := sender.Send(ctx, u, n); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ch, err))
			s.metrics.NotificationDelivered(string(ch), false)
			continue
		}
		n.Delivered = append(n.Delivered, ch)
		s.metrics.NotificationDelivered(string(ch), true)
	}
	return failures
}

// ListNotifications returns notifications newest first, optionally for one user
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.List(ctx, userID, limit, offset)
}

// MarkSent flags a notification as delivered without sending it
func (s *NotificationService) MarkSent(ctx context.Context, id string) (*model.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	if n.Sent {
		return n, nil
	}

	now := s.now().UTC()
	n.Sent = true
	n.SentAt = &now
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}

// RenderText formats a notification as a plain chat message
func RenderText(n *model.Notification) string {
	var b strings.Builder
	b.WriteString(n.Content.Title)
	if n.Content.Message != "" {
		b.WriteString("\n")
		b.WriteString(n.Content.Message)
	}
	if n.Content.StartLocation != "" {
		b.WriteString("\nМесто старта: ")
		b.WriteString(n.Content.StartLocation)
	}
	if n.Content.QuestConditions != "" {
		b.WriteString("\nУсловия: ")
		b.WriteString(n.Content.QuestConditions)
	}
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstCheckpointName(quest *model.Quest) string {
	if cp, ok := quest.Checkpoint(0); ok {
		return cp.Name
	}
	return quest.StartLocation.Name
}
