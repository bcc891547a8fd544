package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
)

const userTable = "user"

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. A second user for the same telegram_id fails
// with database.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.UserRoleUser
	}

	created, err := createRecord(ctx, r.db, userTable, user)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: telegram_id already registered", database.ErrDuplicate)
		}
		return err
	}

	user.ID = created.ID
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getRecord[model.User](ctx, r.db, id)
}

// GetByTelegramID retrieves a user by Telegram account
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	query := `SELECT * FROM user WHERE telegram_id = $telegram_id LIMIT 1`
	return queryRecord[model.User](ctx, r.db, query, map[string]interface{}{"telegram_id": telegramID})
}

// Update replaces the stored user
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	_, err := replaceRecord(ctx, r.db, user.ID, user)
	return err
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return deleteRecord(ctx, r.db, id)
}

// List returns users newest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	query := `SELECT * FROM user ORDER BY registered_at DESC LIMIT $limit START $offset`
	return queryRecords[model.User](ctx, r.db, query, map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	return countRecords(ctx, r.db, `SELECT count() AS count FROM user GROUP ALL`, nil)
}
