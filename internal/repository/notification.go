package repository

import (
	"context"
	"time"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// NotificationRepository handles scheduled and immediate notifications
type NotificationRepository struct {
	db database.Database
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db database.Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	created, err := createRecord(ctx, r.db, "notification", n)
	if err != nil {
		return err
	}
	n.ID = created.ID
	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return getRecord[model.Notification](ctx, r.db, id)
}

// Update replaces the stored notification
func (r *NotificationRepository) Update(ctx context.Context, n *model.Notification) error {
	_, err := replaceRecord(ctx, r.db, n.ID, n)
	return err
}

// ListDue returns unsent notifications scheduled at or before now, oldest first.
// Timestamps are stored as RFC 3339 strings, so they are cast before comparing.
func (r *NotificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	query := `
		SELECT * FROM notification
		WHERE sent = false AND type::datetime(scheduled_for) <= type::datetime($now)
		ORDER BY scheduled_for
		LIMIT $limit
	`
	return queryRecords[model.Notification](ctx, r.db, query, map[string]interface{}{
		"now":   now.UTC().Format(time.RFC3339Nano),
		"limit": limit,
	})
}

// List returns notifications newest first, optionally for one user
func (r *NotificationRepository) List(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	query := `SELECT * FROM notification ORDER BY created_at DESC LIMIT $limit START $offset`
	if userID != "" {
		query = `SELECT * FROM notification WHERE user_id = $user_id ORDER BY created_at DESC LIMIT $limit START $offset`
		vars["user_id"] = userID
	}
	return queryRecords[model.Notification](ctx, r.db, query, vars)
}

var reminderTypes = []string{
	string(model.NotificationReminder24h),
	string(model.NotificationReminder3h),
	string(model.NotificationReminder1h),
}

// DeletePendingForParticipation drops reminders that have not gone out yet
func (r *NotificationRepository) DeletePendingForParticipation(ctx context.Context, participationID string) error {
	query := `DELETE notification WHERE participation_id = $participation_id AND sent = false AND type IN $types`
	return r.db.Execute(ctx, query, map[string]interface{}{
		"participation_id": participationID,
		"types":            reminderTypes,
	})
}
