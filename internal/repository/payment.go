package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// PaymentRepository handles quest payments
type PaymentRepository struct {
	db database.Database
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db database.Database) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create creates a new payment
func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	created, err := createRecord(ctx, r.db, "payment", p)
	if err != nil {
		return err
	}
	p.ID = created.ID
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return getRecord[model.Payment](ctx, r.db, id)
}

// Update replaces the stored payment
func (r *PaymentRepository) Update(ctx context.Context, p *model.Payment) error {
	_, err := replaceRecord(ctx, r.db, p.ID, p)
	return err
}

// List returns payments newest first, optionally for one user
func (r *PaymentRepository) List(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error) {
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	query := `SELECT * FROM payment ORDER BY created_at DESC LIMIT $limit START $offset`
	if userID != "" {
		query = `SELECT * FROM payment WHERE user_id = $user_id ORDER BY created_at DESC LIMIT $limit START $offset`
		vars["user_id"] = userID
	}
	return queryRecords[model.Payment](ctx, r.db, query, vars)
}
