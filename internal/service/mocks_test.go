package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// In-memory repositories shared by the service tests

type memUserRepo struct {
	mu        sync.Mutex
	users     map[string]*model.User
	seq       int
	createErr error
	updateErr error
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	m := &memUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	user.ID = fmt.Sprintf("user:%d", m.seq)
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) GetByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []model.User{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUserRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUserRepo) get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type memQuestRepo struct {
	quests map[string]*model.Quest
}

func newMemQuestRepo(quests ...*model.Quest) *memQuestRepo {
	m := &memQuestRepo{quests: make(map[string]*model.Quest)}
	for _, q := range quests {
		m.quests[q.ID] = q
	}
	return m
}

func (m *memQuestRepo) Create(ctx context.Context, quest *model.Quest) error {
	if quest.ID == "" {
		quest.ID = fmt.Sprintf("quest:%d", len(m.quests)+1)
	}
	m.quests[quest.ID] = quest
	return nil
}

func (m *memQuestRepo) GetByID(ctx context.Context, id string) (*model.Quest, error) {
	return m.quests[id], nil
}

func (m *memQuestRepo) List(ctx context.Context, filter model.QuestFilter) ([]model.Quest, error) {
	var out []model.Quest
	for _, q := range m.quests {
		if filter.ActiveOnly && !q.IsActive {
			continue
		}
		if filter.City != "" && q.City != filter.City {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (m *memQuestRepo) Update(ctx context.Context, quest *model.Quest) error {
	m.quests[quest.ID] = quest
	return nil
}

func (m *memQuestRepo) Delete(ctx context.Context, id string) error {
	delete(m.quests, id)
	return nil
}

type memParticipationRepo struct {
	mu        sync.Mutex
	items     map[string]*model.Participation
	users     *memUserRepo
	seq       int
	updates   int
	updateErr error
}

func newMemParticipationRepo(users *memUserRepo, ps ...*model.Participation) *memParticipationRepo {
	m := &memParticipationRepo{items: make(map[string]*model.Participation), users: users}
	for _, p := range ps {
		m.items[p.ID] = p
	}
	return m
}

func (m *memParticipationRepo) Create(ctx context.Context, p *model.Participation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("participation:%d", m.seq)
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memParticipationRepo) GetByID(ctx context.Context, id string) (*model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memParticipationRepo) Update(ctx context.Context, p *model.Participation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memParticipationRepo) UpdateWithUser(ctx context.Context, p *model.Participation, u *model.User) error {
	if err := m.Update(ctx, p); err != nil {
		return err
	}
	return m.users.Update(ctx, u)
}

func (m *memParticipationRepo) ActiveForUser(ctx context.Context, userID string) (*model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.UserID == userID && p.IsActive() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memParticipationRepo) ListByUser(ctx context.Context, userID, questID string) ([]model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Participation
	for _, p := range m.items {
		if p.UserID == userID && (questID == "" || p.QuestID == questID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationTime.After(out[j].RegistrationTime) })
	return out, nil
}

func (m *memParticipationRepo) ListByQuest(ctx context.Context, questID string) ([]model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Participation
	for _, p := range m.items {
		if p.QuestID == questID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memParticipationRepo) List(ctx context.Context, status model.ParticipationStatus, limit, offset int) ([]model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Participation
	for _, p := range m.items {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memParticipationRepo) get(id string) *model.Participation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

type memPaymentRepo struct {
	items map[string]*model.Payment
	seq   int
}

func newMemPaymentRepo(ps ...*model.Payment) *memPaymentRepo {
	m := &memPaymentRepo{items: make(map[string]*model.Payment)}
	for _, p := range ps {
		m.items[p.ID] = p
	}
	return m
}

func (m *memPaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	m.seq++
	p.ID = fmt.Sprintf("payment:%d", m.seq)
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) Update(ctx context.Context, p *model.Payment) error {
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) List(ctx context.Context, userID string, limit, offset int) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.items {
		if userID == "" || p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memAgreementRepo struct {
	items []model.Agreement
}

func (m *memAgreementRepo) Create(ctx context.Context, a *model.Agreement) error {
	a.ID = "agreement:" + string(a.Type)
	m.items = append(m.items, *a)
	return nil
}

func (m *memAgreementRepo) GetByID(ctx context.Context, id string) (*model.Agreement, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			a := m.items[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memAgreementRepo) List(ctx context.Context) ([]model.Agreement, error) {
	return m.items, nil
}

func (m *memAgreementRepo) Update(ctx context.Context, a *model.Agreement) error {
	for i := range m.items {
		if m.items[i].ID == a.ID {
			m.items[i] = *a
		}
	}
	return nil
}

func (m *memAgreementRepo) Delete(ctx context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// requiredAgreements is a catalog with two required documents and the
// optional minor consent
func requiredAgreements() *memAgreementRepo {
	return &memAgreementRepo{items: []model.Agreement{
		{ID: "agreement:personal_data", Type: model.AgreementPersonalData, IsRequired: true, Version: "1.0"},
		{ID: "agreement:safety", Type: model.AgreementSafety, IsRequired: true, Version: "1.0"},
		{ID: "agreement:minor", Type: model.AgreementMinor, IsRequired: false, Version: "1.0"},
	}}
}

type memNotificationRepo struct {
	mu        sync.Mutex
	items     map[string]*model.Notification
	seq       int
	deletedBy []string
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{items: make(map[string]*model.Notification)}
}

func (m *memNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	n.ID = fmt.Sprintf("notification:%d", m.seq)
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *memNotificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *memNotificationRepo) Update(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *memNotificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.IsDue(now) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotificationRepo) List(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if userID == "" || n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (m *memNotificationRepo) DeletePendingForParticipation(ctx context.Context, participationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedBy = append(m.deletedBy, participationID)
	for id, n := range m.items {
		if n.ParticipationID == participationID && !n.Sent && isReminder(n.Type) {
			delete(m.items, id)
		}
	}
	return nil
}

func isReminder(t model.NotificationType) bool {
	return t == model.NotificationReminder24h || t == model.NotificationReminder3h || t == model.NotificationReminder1h
}

func (m *memNotificationRepo) all() []model.Notification {
	list, _ := m.List(context.Background(), "", 0, 0)
	return list
}

// mockSender records deliveries and fails while sendErr is set
type mockSender struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (m *mockSender) Send(ctx context.Context, u *model.User, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, n.ID)
	return nil
}

// mockGenerator returns a canned question or error
type mockGenerator struct {
	generateFunc func(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error)
	calls        int
}

func (m *mockGenerator) Generate(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, loc, d)
	}
	return &model.Question{
		Text:         "Сгенерированный вопрос о " + loc.Name,
		Type:         model.QuestionAIGenerated,
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: ptrInt(1),
		Difficulty:   d,
		IsAI:         true,
		LocationID:   loc.ID,
	}, nil
}

// countingMetrics counts the calls the tests care about
type countingMetrics struct {
	nopMetrics
	mu         sync.Mutex
	started    int
	finished   map[string]int
	violations int
	answers    int
	delivered  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{finished: map[string]int{}, delivered: map[string]int{}}
}

func (m *countingMetrics) ParticipationStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *countingMetrics) ParticipationFinished(status string, score int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[status]++
}

func (m *countingMetrics) SpeedViolation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations++
}

func (m *countingMetrics) AnswerSubmitted(correct, ai bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers++
}

func (m *countingMetrics) NotificationDelivered(channel string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.delivered[channel]++
	}
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// player returns a registered user ready to join a quest
func player(id string) *model.User {
	return &model.User{
		ID:         id,
		TelegramID: "100" + id[len("user:"):],
		FirstName:  "Анна",
		Age:        25,
		Phone:      "+79001234567",
		Location:   &model.UserLocation{Lat: 55.7558, Lng: 37.6176, City: "Москва", District: "Центральный"},
		AgreementsSigned: model.AgreementFlags{
			PersonalData: true,
			Safety:       true,
		},
		QuestsCompleted: []string{},
		Role:            model.UserRoleUser,
	}
}

type memCityRepo struct {
	items map[string]*model.City
	seq   int
}

func newMemCityRepo() *memCityRepo {
	return &memCityRepo{items: make(map[string]*model.City)}
}

func (m *memCityRepo) Create(ctx context.Context, city *model.City) error {
	m.seq++
	city.ID = fmt.Sprintf("city:%d", m.seq)
	cp := *city
	m.items[city.ID] = &cp
	return nil
}

func (m *memCityRepo) GetByID(ctx context.Context, id string) (*model.City, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memCityRepo) List(ctx context.Context, activeOnly bool) ([]model.City, error) {
	var out []model.City
	for _, c := range m.items {
		if !activeOnly || c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCityRepo) Update(ctx context.Context, city *model.City) error {
	cp := *city
	m.items[city.ID] = &cp
	return nil
}

func (m *memCityRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *memCityRepo) Count(ctx context.Context) (int, error) { return len(m.items), nil }

type memLocationRepo struct {
	items map[string]*model.Location
	seq   int
}

func newMemLocationRepo() *memLocationRepo {
	return &memLocationRepo{items: make(map[string]*model.Location)}
}

func (m *memLocationRepo) Create(ctx context.Context, loc *model.Location) error {
	m.seq++
	loc.ID = fmt.Sprintf("location:%d", m.seq)
	cp := *loc
	m.items[loc.ID] = &cp
	return nil
}

func (m *memLocationRepo) GetByID(ctx context.Context, id string) (*model.Location, error) {
	l, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (m *memLocationRepo) ListByCity(ctx context.Context, city, district string) ([]model.Location, error) {
	var out []model.Location
	for _, l := range m.items {
		if l.City == city && (district == "" || l.District == district) {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLocationRepo) Update(ctx context.Context, loc *model.Location) error {
	cp := *loc
	m.items[loc.ID] = &cp
	return nil
}

func (m *memLocationRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type memQuestionRepo struct {
	items []model.Question
	seq   int
}

func (m *memQuestionRepo) Create(ctx context.Context, q *model.Question) error {
	m.seq++
	q.ID = fmt.Sprintf("question:%d", m.seq)
	m.items = append(m.items, *q)
	return nil
}

func (m *memQuestionRepo) GetByID(ctx context.Context, id string) (*model.Question, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			q := m.items[i]
			return &q, nil
		}
	}
	return nil, nil
}

func (m *memQuestionRepo) ListByLocation(ctx context.Context, locationID string) ([]model.Question, error) {
	var out []model.Question
	for _, q := range m.items {
		if q.LocationID == locationID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestionRepo) Update(ctx context.Context, q *model.Question) error {
	for i := range m.items {
		if m.items[i].ID == q.ID {
			m.items[i] = *q
		}
	}
	return nil
}

func (m *memQuestionRepo) Delete(ctx context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return nil
}
