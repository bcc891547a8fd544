package repository

import (
	"context"
	"testing"
	"time"

	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// fakeDB returns canned responses and records the last statement
type fakeDB struct {
	queryFn   func(query string, vars map[string]interface{}) ([]interface{}, error)
	lastQuery string
	lastVars  map[string]interface{}
}

func (f *fakeDB) Connect(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                      { return nil }
func (f *fakeDB) Ping(ctx context.Context) error    { return nil }

func (f *fakeDB) Query(ctx context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	f.lastQuery, f.lastVars = query, vars
	if f.queryFn == nil {
		return ok(), nil
	}
	return f.queryFn(query, vars)
}

func (f *fakeDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	res, err := f.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows := extractQueryResults(res)
	if len(rows) == 0 {
		return nil, database.ErrNotFound
	}
	return rows[0], nil
}

func (f *fakeDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := f.Query(ctx, query, vars)
	return err
}

func ok(rows ...interface{}) []interface{} {
	if rows == nil {
		rows = []interface{}{}
	}
	return []interface{}{map[string]interface{}{"status": "OK", "result": rows}}
}

func TestConvertSurrealID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:abc", convertSurrealID("user:abc"))
	assert.Equal(t, "quest:xyz", convertSurrealID(models.RecordID{Table: "quest", ID: "xyz"}))
	assert.Equal(t, "city:msk", convertSurrealID(map[string]interface{}{"tb": "city", "id": map[string]interface{}{"String": "msk"}}))
}

func TestToContent_DropsID(t *testing.T) {
	t.Parallel()

	content, err := toContent(&model.Payment{ID: "payment:1", Amount: 500, Currency: "RUB"})
	require.NoError(t, err)

	assert.NotContains(t, content, "id")
	assert.Equal(t, float64(500), content["amount"])
	assert.Equal(t, "RUB", content["currency"])
}

func TestDecodeRecord_RoundTripsTimesAndIDs(t *testing.T) {
	t.Parallel()

	when := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	row := map[string]interface{}{
		"id":                models.RecordID{Table: "participation", ID: "p1"},
		"status":            "in_progress",
		"registration_time": when.Format(time.RFC3339Nano),
		"answers": []interface{}{
			map[string]interface{}{"question_id": "question:1", "is_correct": true, "points": uint64(45)},
		},
	}

	p, err := decodeRecord[model.Participation](row)
	require.NoError(t, err)

	assert.Equal(t, "participation:p1", p.ID)
	assert.Equal(t, model.ParticipationInProgress, p.Status)
	assert.True(t, p.RegistrationTime.Equal(when))
	require.Len(t, p.Answers, 1)
	assert.Equal(t, 45, p.Answers[0].Points)
}

func TestDecodeRecord_NilIsNotFound(t *testing.T) {
	t.Parallel()

	_, err := decodeRecord[model.User](nil)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = decodeRecord[model.User]([]interface{}{})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestExtractCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, extractCount(ok(map[string]interface{}{"count": uint64(3)})))
	assert.Equal(t, 0, extractCount(ok()))
}

func TestUserRepository_Create_SetsIDAndDefaultRole(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(query string, vars map[string]interface{}) ([]interface{}, error) {
		content := vars["content"].(map[string]interface{})
		content["id"] = models.RecordID{Table: "user", ID: "u1"}
		return ok(content), nil
	}}
	repo := NewUserRepository(db)

	u := &model.User{TelegramID: "42", FirstName: "Анна", Age: 20, Phone: "+79161234567"}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, "user:u1", u.ID)
	assert.Equal(t, model.UserRoleUser, u.Role)
	assert.Equal(t, "user", db.lastVars["table"])
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	t.Parallel()

	db := &fakeDB{queryFn: func(string, map[string]interface{}) ([]interface{}, error) {
		return nil, database.ErrDuplicate
	}}

	err := NewUserRepository(db).Create(context.Background(), &model.User{TelegramID: "42"})
	assert.ErrorIs(t, err, database.ErrDuplicate)
}

func TestUserRepository_GetByTelegramID_MissingReturnsNil(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	u, err := NewUserRepository(db).GetByTelegramID(context.Background(), "42")

	require.NoError(t, err)
	assert.Nil(t, u)
	assert.Equal(t, "42", db.lastVars["telegram_id"])
}

func TestQuestRepository_List_BuildsFilter(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	_, err := NewQuestRepository(db).List(context.Background(), model.QuestFilter{City: "Москва", District: "Центральный", ActiveOnly: true})
	require.NoError(t, err)

	assert.Contains(t, db.lastQuery, "city = $city AND district = $district AND is_active = true")
	assert.Equal(t, "Москва", db.lastVars["city"])
}

func TestParticipationRepository_UpdateWithUser_SingleTransaction(t *testing.T) {
	t.Parallel()

	calls := 0
	db := &fakeDB{queryFn: func(string, map[string]interface{}) ([]interface{}, error) {
		calls++
		return ok(), nil
	}}

	err := NewParticipationRepository(db).UpdateWithUser(context.Background(),
		&model.Participation{ID: "participation:1", Status: model.ParticipationCompleted},
		&model.User{ID: "user:1", QuestsCompleted: []string{"quest:1"}},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Contains(t, db.lastQuery, "BEGIN TRANSACTION")
	assert.Equal(t, "participation:1", db.lastVars["s1_id"])
	assert.Equal(t, "user:1", db.lastVars["s2_id"])
}

func TestNotificationRepository_ListDue_FormatsNow(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	_, err := NewNotificationRepository(db).ListDue(context.Background(), now, 50)
	require.NoError(t, err)

	assert.Equal(t, "2026-05-01T09:00:00Z", db.lastVars["now"])
	assert.Equal(t, 50, db.lastVars["limit"])
}
