package model

import "time"

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentMethod is the provider that charged the player
type PaymentMethod string

const (
	PaymentTelegram PaymentMethod = "telegram_payments"
	PaymentYooKassa PaymentMethod = "yookassa"
	PaymentStripe   PaymentMethod = "stripe"
)

// IsValid reports whether m is a supported method
func (m PaymentMethod) IsValid() bool {
	return m == PaymentTelegram || m == PaymentYooKassa || m == PaymentStripe
}

// Payment is a charge for one quest
type Payment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	QuestID       string        `json:"quest_id"`
	Amount        int           `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// IsUsableFor reports whether the payment entitles userID to play questID
func (p *Payment) IsUsableFor(userID, questID string) bool {
	return p.Status == PaymentCompleted && p.UserID == userID && p.QuestID == questID
}
