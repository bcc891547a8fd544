package repository

import (
	"context"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

// CityRepository handles cities and their embedded districts
type CityRepository struct {
	db database.Database
}

// NewCityRepository creates a new city repository
func NewCityRepository(db database.Database) *CityRepository {
	return &CityRepository{db: db}
}

// Create creates a new city
func (r *CityRepository) Create(ctx context.Context, city *model.City) error {
	created, err := createRecord(ctx, r.db, "city", city)
	if err != nil {
		return err
	}
	city.ID = created.ID
	return nil
}

// GetByID retrieves a city by ID
func (r *CityRepository) GetByID(ctx context.Context, id string) (*model.City, error) {
	return getRecord[model.City](ctx, r.db, id)
}

// List returns cities by name, optionally only the active ones
func (r *CityRepository) List(ctx context.Context, activeOnly bool) ([]model.City, error) {
	query := `SELECT * FROM city ORDER BY name`
	if activeOnly {
		query = `SELECT * FROM city WHERE is_active = true ORDER BY name`
	}
	return queryRecords[model.City](ctx, r.db, query, nil)
}

// Update replaces the stored city including its districts
func (r *CityRepository) Update(ctx context.Context, city *model.City) error {
	_, err := replaceRecord(ctx, r.db, city.ID, city)
	return err
}

// Delete deletes a city
func (r *CityRepository) Delete(ctx context.Context, id string) error {
	return deleteRecord(ctx, r.db, id)
}

// Count returns the number of cities
func (r *CityRepository) Count(ctx context.Context) (int, error) {
	return countRecords(ctx, r.db, `SELECT count() AS count FROM city GROUP ALL`, nil)
}
