package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// LocationRepository handles the library of checkpoint locations
type LocationRepository struct {
	db database.Database
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db database.Database) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create creates a new location. Questions are stored separately.
func (r *LocationRepository) Create(ctx context.Context, loc *model.Location) error {
	stored := *loc
	stored.Questions = nil

	created, err := createRecord(ctx, r.db, "location", &stored)
	if err != nil {
		return err
	}
	loc.ID = created.ID
	return nil
}

// GetByID retrieves a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*model.Location, error) {
	return getRecord[model.Location](ctx, r.db, id)
}

// ListByCity returns the locations of a city, narrowed to a district when given
func (r *LocationRepository) ListByCity(ctx context.Context, city, district string) ([]model.Location, error) {
	vars := map[string]interface{}{"city": city}
	query := `SELECT * FROM location WHERE city = $city ORDER BY name`
	if district != "" {
		query = `SELECT * FROM location WHERE city = $city AND district = $district ORDER BY name`
		vars["district"] = district
	}
	return queryRecords[model.Location](ctx, r.db, query, vars)
}

// Update replaces the stored location
func (r *LocationRepository) Update(ctx context.Context, loc *model.Location) error {
	stored := *loc
	stored.Questions = nil
	_, err := replaceRecord(ctx, r.db, loc.ID, &stored)
	return err
}

// Delete removes a location together with its questions
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	return database.NewAtomicBatch().
		Add(`DELETE question WHERE location_id = $id`, map[string]interface{}{"id": id}).
		Add(`DELETE type::record($id)`, map[string]interface{}{"id": id}).
		Execute(ctx, r.db)
}
