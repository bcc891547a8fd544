package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// ParticipationRepository handles quest participations and their game state
type ParticipationRepository struct {
	db database.Database
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db database.Database) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Create creates a new participation
func (r *ParticipationRepository) Create(ctx context.Context, p *model.Participation) error {
	created, err := createRecord(ctx, r.db, "participation", p)
	if err != nil {
		return err
	}
	p.ID = created.ID
	return nil
}

// GetByID retrieves a participation by ID
func (r *ParticipationRepository) GetByID(ctx context.Context, id string) (*model.Participation, error) {
	return getRecord[model.Participation](ctx, r.db, id)
}

// Update replaces the stored participation
func (r *ParticipationRepository) Update(ctx context.Context, p *model.Participation) error {
	_, err := replaceRecord(ctx, r.db, p.ID, p)
	return err
}

// UpdateWithUser stores a participation and its player in one transaction.
// Used for transitions that also change the user's current or completed quests.
func (r *ParticipationRepository) UpdateWithUser(ctx context.Context, p *model.Participation, u *model.User) error {
	pContent, err := toContent(p)
	if err != nil {
		return err
	}
	uContent, err := toContent(u)
	if err != nil {
		return err
	}

	return database.NewAtomicBatch().
		Add(`UPDATE type::record($id) CONTENT $content`, map[string]interface{}{"id": p.ID, "content": pContent}).
		Add(`UPDATE type::record($id) CONTENT $content`, map[string]interface{}{"id": u.ID, "content": uContent}).
		Execute(ctx, r.db)
}

// ActiveForUser returns the user's registered or in-progress participation, if any
func (r *ParticipationRepository) ActiveForUser(ctx context.Context, userID string) (*model.Participation, error) {
	query := `SELECT * FROM participation WHERE user_id = $user_id AND status IN ['registered', 'in_progress'] LIMIT 1`
	return queryRecord[model.Participation](ctx, r.db, query, map[string]interface{}{"user_id": userID})
}

// ListByUser returns a user's participations, newest first, optionally for one quest
func (r *ParticipationRepository) ListByUser(ctx context.Context, userID, questID string) ([]model.Participation, error) {
	vars := map[string]interface{}{"user_id": userID}
	query := `SELECT * FROM participation WHERE user_id = $user_id ORDER BY registration_time DESC`
	if questID != "" {
		query = `SELECT * FROM participation WHERE user_id = $user_id AND quest_id = $quest_id ORDER BY registration_time DESC`
		vars["quest_id"] = questID
	}
	return queryRecords[model.Participation](ctx, r.db, query, vars)
}

// ListByQuest returns every participation of a quest
func (r *ParticipationRepository) ListByQuest(ctx context.Context, questID string) ([]model.Participation, error) {
	query := `SELECT * FROM participation WHERE quest_id = $quest_id`
	return queryRecords[model.Participation](ctx, r.db, query, map[string]interface{}{"quest_id": questID})
}

// List returns participations newest first, optionally filtered by status
func (r *ParticipationRepository) List(ctx context.Context, status model.ParticipationStatus, limit, offset int) ([]model.Participation, error) {
	vars := map[string]interface{}{"limit": limit, "offset": offset}
	query := `SELECT * FROM participation ORDER BY registration_time DESC LIMIT $limit START $offset`
	if status != "" {
		query = `SELECT * FROM participation WHERE status = $status ORDER BY registration_time DESC LIMIT $limit START $offset`
		vars["status"] = status
	}
	return queryRecords[model.Participation](ctx, r.db, query, vars)
}
