package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// QuestionRepository handles questions linked to library locations
type QuestionRepository struct {
	db database.Database
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db database.Database) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// Create creates a new question
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	created, err := createRecord(ctx, r.db, "question", q)
	if err != nil {
		return err
	}
	q.ID = created.ID
	return nil
}

// GetByID retrieves a question by ID
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*model.Question, error) {
	return getRecord[model.Question](ctx, r.db, id)
}

// ListByLocation returns a location's questions in creation order
func (r *QuestionRepository) ListByLocation(ctx context.Context, locationID string) ([]model.Question, error) {
	query := `SELECT * FROM question WHERE location_id = $location_id ORDER BY created_at`
	return queryRecords[model.Question](ctx, r.db, query, map[string]interface{}{"location_id": locationID})
}

// Update replaces the stored question
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := replaceRecord(ctx, r.db, q.ID, q)
	return err
}

// Delete deletes a question
func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	return deleteRecord(ctx, r.db, id)
}
