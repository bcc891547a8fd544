package model

import "time"

// NotificationType identifies why a message is sent
type NotificationType string

const (
	NotificationReminder24h    NotificationType = "quest_reminder_24h"
	NotificationReminder3h     NotificationType = "quest_reminder_3h"
	NotificationReminder1h     NotificationType = "quest_reminder_1h"
	NotificationQuestStart     NotificationType = "quest_start"
	NotificationQuestComplete  NotificationType = "quest_complete"
	NotificationPaymentSuccess NotificationType = "payment_success"
)

// Channel is a delivery medium
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
)

// NotificationContent is the rendered message
type NotificationContent struct {
	Title           string `json:"title"`
	Message         string `json:"message"`
	StartLocation   string `json:"start_location,omitempty"`
	QuestConditions string `json:"quest_conditions,omitempty"`
}

// Notification is a message scheduled for one user
type Notification struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	QuestID         string              `json:"quest_id,omitempty"`
	ParticipationID string              `json:"participation_id,omitempty"`
	Type            NotificationType    `json:"type"`
	Channels        []Channel           `json:"channels"`
	ScheduledFor    time.Time           `json:"scheduled_for"`
	Sent            bool                `json:"sent"`
	SentAt          *time.Time          `json:"sent_at,omitempty"`
	Delivered       []Channel           `json:"delivered,omitempty"`
	Attempts        int                 `json:"attempts"`
	LastError       string              `json:"last_error,omitempty"`
	Content         NotificationContent `json:"content"`
	CreatedAt       time.Time           `json:"created_at"`
}

// IsDue reports whether the notification should be dispatched at now
func (n *Notification) IsDue(now time.Time) bool {
	return !n.Sent && !n.ScheduledFor.After(now)
}

// IsDelivered reports whether channel already received the notification
func (n *Notification) IsDelivered(ch Channel) bool {
	for _, d := range n.Delivered {
		if d == ch {
			return true
		}
	}
	return false
}
