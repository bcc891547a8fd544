package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// AgreementRepository handles the legal documents catalog
type AgreementRepository struct {
	db database.Database
}

// NewAgreementRepository creates a new agreement repository
func NewAgreementRepository(db database.Database) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// Create creates a new agreement; one per type
func (r *AgreementRepository) Create(ctx context.Context, a *model.Agreement) error {
	created, err := createRecord(ctx, r.db, "agreement", a)
	if err != nil {
		return err
	}
	a.ID = created.ID
	return nil
}

// GetByID retrieves an agreement by ID
func (r *AgreementRepository) GetByID(ctx context.Context, id string) (*model.Agreement, error) {
	return getRecord[model.Agreement](ctx, r.db, id)
}

// List returns the whole catalog
func (r *AgreementRepository) List(ctx context.Context) ([]model.Agreement, error) {
	return queryRecords[model.Agreement](ctx, r.db, `SELECT * FROM agreement`, nil)
}

// Update replaces the stored agreement
func (r *AgreementRepository) Update(ctx context.Context, a *model.Agreement) error {
	_, err := replaceRecord(ctx, r.db, a.ID, a)
	return err
}

// Delete deletes an agreement
func (r *AgreementRepository) Delete(ctx context.Context, id string) error {
	return deleteRecord(ctx, r.db, id)
}
