package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCityRepo struct {
	listFunc func(ctx context.Context, activeOnly bool) ([]model.City, error)
}

func (m *mockCityRepo) Create(ctx context.Context, city *model.City) error { return nil }
func (m *mockCityRepo) GetByID(ctx context.Context, id string) (*model.City, error) {
	return nil, nil
}
func (m *mockCityRepo) List(ctx context.Context, activeOnly bool) ([]model.City, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, activeOnly)
	}
	return nil, nil
}
func (m *mockCityRepo) Update(ctx context.Context, city *model.City) error { return nil }
func (m *mockCityRepo) Delete(ctx context.Context, id string) error        { return nil }
func (m *mockCityRepo) Count(ctx context.Context) (int, error)             { return 0, nil }

func moscow() model.City {
	return model.City{
		ID:          "city:moscow",
		Name:        "Москва",
		Coordinates: model.Coordinates{Lat: 55.7558, Lng: 37.6176},
		IsActive:    true,
		Districts: []model.District{
			{ID: "d1", Name: "Центральный", Coordinates: model.Coordinates{Lat: 55.7558, Lng: 37.6176}, IsActive: true},
			{ID: "d2", Name: "Северный", Coordinates: model.Coordinates{Lat: 55.88, Lng: 37.55}, IsActive: true},
		},
	}
}

func newUserService(users *memUserRepo) *UserService {
	return NewUserService(UserServiceConfig{
		Users: users,
		Cities: &mockCityRepo{listFunc: func(ctx context.Context, activeOnly bool) ([]model.City, error) {
			return []model.City{moscow()}, nil
		}},
		Agreements: requiredAgreements(),
		Now:        func() time.Time { return t0 },
	})
}

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	users := newMemUserRepo()
	svc := newUserService(users)

	u, err := svc.Register(context.Background(), "279058397", &model.RegisterUserRequest{
		FirstName: " Анна ",
		Age:       25,
		Phone:     "+7 (900) 123-45-67",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Анна", u.FirstName)
	assert.Equal(t, "+79001234567", u.Phone)
	assert.Equal(t, model.UserRoleUser, u.Role)
	assert.Equal(t, model.AgreementFlags{}, u.AgreementsSigned)
	assert.True(t, u.RegisteredAt.Equal(t0))

	_, err = svc.Register(context.Background(), "279058397", &model.RegisterUserRequest{FirstName: "Анна", Age: 25, Phone: "+79001234567"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserService_Register_Rejections(t *testing.T) {
	t.Parallel()

	valid := model.RegisterUserRequest{FirstName: "Анна", Age: 25, Phone: "+79001234567"}

	t.Run("no telegram id", func(t *testing.T) {
		_, err := newUserService(newMemUserRepo()).Register(context.Background(), "", &valid)
		assert.ErrorIs(t, err, ErrTelegramIDRequired)
	})

	t.Run("validation", func(t *testing.T) {
		req := valid
		req.Age = 8
		_, err := newUserService(newMemUserRepo()).Register(context.Background(), "1", &req)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "age", verr.Fields[0].Field)
	})

	t.Run("duplicate at insert", func(t *testing.T) {
		users := newMemUserRepo()
		users.createErr = fmt.Errorf("insert: %w", database.ErrDuplicate)
		_, err := newUserService(users).Register(context.Background(), "1", &valid)
		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})
}

func TestUserService_UpdateLocation(t *testing.T) {
	t.Parallel()

	users := newMemUserRepo(&model.User{ID: "user:1", TelegramID: "1"})
	svc := newUserService(users)

	u, err := svc.UpdateLocation(context.Background(), "user:1", &model.UpdateLocationRequest{Lat: 55.757, Lng: 37.62})
	require.NoError(t, err)
	require.NotNil(t, u.Location)
	assert.Equal(t, "Москва", u.Location.City)
	assert.Equal(t, "Центральный", u.Location.District)

	u, err = svc.UpdateLocation(context.Background(), "user:1", &model.UpdateLocationRequest{Lat: 55.757, Lng: 37.62, City: "Москва", District: "Арбат"})
	require.NoError(t, err)
	assert.Equal(t, "Арбат", u.Location.District, "explicit labels kept")

	_, err = svc.UpdateLocation(context.Background(), "user:404", &model.UpdateLocationRequest{Lat: 55.757, Lng: 37.62})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_SignAgreements(t *testing.T) {
	t.Parallel()

	adult := &model.User{ID: "user:1", Age: 30}
	minor := &model.User{ID: "user:2", Age: 15}
	users := newMemUserRepo(adult, minor)
	svc := newUserService(users)
	ctx := context.Background()

	_, err := svc.SignAgreements(ctx, "user:1", model.AgreementFlags{PersonalData: true})
	var missing *AgreementsMissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []model.AgreementType{model.AgreementSafety}, missing.Missing)
	assert.ErrorIs(t, err, ErrAgreementsRequired)

	u, err := svc.SignAgreements(ctx, "user:1", model.AgreementFlags{PersonalData: true, Safety: true})
	require.NoError(t, err)
	assert.True(t, u.AgreementsSigned.Safety)

	// a minor also needs the parental consent
	_, err = svc.SignAgreements(ctx, "user:2", model.AgreementFlags{PersonalData: true, Safety: true})
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []model.AgreementType{model.AgreementMinor}, missing.Missing)
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()

	users := newMemUserRepo()
	for i := 1; i <= 3; i++ {
		u := player(fmt.Sprintf("user:%d", i))
		users.users[u.ID] = u
	}
	svc := newUserService(users)

	list, total, err := svc.ListUsers(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 3, total)
}
