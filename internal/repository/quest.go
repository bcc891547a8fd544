package repository

import (
	"context"
	"strings"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// QuestRepository handles quests with their embedded route snapshots
type QuestRepository struct {
	db database.Database
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db database.Database) *QuestRepository {
	return &QuestRepository{db: db}
}

// Create creates a new quest
func (r *QuestRepository) Create(ctx context.Context, quest *model.Quest) error {
	created, err := createRecord(ctx, r.db, "quest", quest)
	if err != nil {
		return err
	}
	quest.ID = created.ID
	return nil
}

// GetByID retrieves a quest by ID
func (r *QuestRepository) GetByID(ctx context.Context, id string) (*model.Quest, error) {
	return getRecord[model.Quest](ctx, r.db, id)
}

// List returns quests matching the filter, newest first
func (r *QuestRepository) List(ctx context.Context, filter model.QuestFilter) ([]model.Quest, error) {
	var conds []string
	vars := map[string]interface{}{}

	if filter.City != "" {
		conds = append(conds, "city = $city")
		vars["city"] = filter.City
	}
	if filter.District != "" {
		conds = append(conds, "district = $district")
		vars["district"] = filter.District
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active = true")
	}

	query := "SELECT * FROM quest"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	return queryRecords[model.Quest](ctx, r.db, query, vars)
}

// Update replaces the stored quest
func (r *QuestRepository) Update(ctx context.Context, quest *model.Quest) error {
	_, err := replaceRecord(ctx, r.db, quest.ID, quest)
	return err
}

// Delete deletes a quest
func (r *QuestRepository) Delete(ctx context.Context, id string) error {
	return deleteRecord(ctx, r.db, id)
}
