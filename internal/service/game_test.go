package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gameFixture struct {
	svc           *GameService
	quest         *model.Quest
	users         *memUserRepo
	parts         *memParticipationRepo
	notifications *memNotificationRepo
	generator     *mockGenerator
	metrics       *countingMetrics
	hub           *EventHub
	clock         *clock
	pid           string
}

func newGameFixture(t *testing.T, rules GameRules) *gameFixture {
	t.Helper()

	f := &gameFixture{
		quest:         testQuest(),
		notifications: newMemNotificationRepo(),
		generator:     &mockGenerator{},
		metrics:       newCountingMetrics(),
		hub:           newEventHub(time.Hour),
		clock:         newClock(t0),
	}
	t.Cleanup(f.hub.Close)

	p := registered()
	u := player("user:1")
	u.CurrentQuest = p.ID
	f.users = newMemUserRepo(u)

	p.RegistrationTime = t0.Add(-time.Hour)
	f.pid = p.ID
	f.parts = newMemParticipationRepo(f.users, p)

	// a pending reminder that starting the quest should drop
	require.NoError(t, f.notifications.Create(context.Background(), &model.Notification{
		UserID:          u.ID,
		ParticipationID: p.ID,
		Type:            model.NotificationReminder1h,
		ScheduledFor:    t0.Add(time.Hour),
	}))

	notifier := NewNotificationService(NotificationServiceConfig{
		Repo:  f.notifications,
		Users: f.users,
		Now:   f.clock.Now,
	})

	f.svc = NewGameService(GameServiceConfig{
		Participations: f.parts,
		Quests:         newMemQuestRepo(f.quest),
		Users:          f.users,
		Progression:    NewProgression(rules, nil),
		Generator:      f.generator,
		Notifier:       notifier,
		Hub:            f.hub,
		Metrics:        f.metrics,
		Now:            f.clock.Now,
	})
	return f
}

func (f *gameFixture) start(t *testing.T) {
	t.Helper()
	_, err := f.svc.StartQuest(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
}

// walkTo reports the player standing on checkpoint i after a five minute walk
// and waits out the arrival delay
func (f *gameFixture) walkTo(t *testing.T, i int) {
	t.Helper()
	f.clock.Advance(5 * time.Minute)
	cp := f.quest.Locations[i].Coordinates
	res, err := f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: cp.Lat, Lng: cp.Lng})
	require.NoError(t, err)
	require.True(t, res.Arrived, "checkpoint %d", i)
	require.Nil(t, res.Violation)
	f.clock.Advance(f.svc.Rules().ArrivalDelay)
}

func (f *gameFixture) answer(t *testing.T, option int) *model.AnswerResult {
	t.Helper()
	res, err := f.svc.SubmitAnswer(context.Background(), "user:1", f.pid, model.AnswerInput{OptionIndex: ptrInt(option)})
	require.NoError(t, err)
	return res
}

func drain(sub *Subscriber) []EventType {
	var types []EventType
	for {
		select {
		case e := <-sub.Events:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func TestGameService_StartQuest(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())

	p, err := f.svc.StartQuest(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationInProgress, p.Status)
	assert.Equal(t, model.ParticipationInProgress, f.parts.get(f.pid).Status)
	assert.Equal(t, 1, f.metrics.started)

	notes := f.notifications.all()
	require.Len(t, notes, 1, "reminder dropped, start notice queued")
	assert.Equal(t, model.NotificationQuestStart, notes[0].Type)

	_, err = f.svc.StartQuest(context.Background(), "user:1", f.pid)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGameService_Ownership(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())

	_, err := f.svc.StartQuest(context.Background(), "user:2", f.pid)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.svc.GetParticipation(context.Background(), "user:1", "participation:missing")
	assert.ErrorIs(t, err, ErrParticipationNotFound)

	assert.NoError(t, f.svc.Authorize(context.Background(), "user:1", f.pid))
	assert.ErrorIs(t, f.svc.Authorize(context.Background(), "user:2", f.pid), ErrNotParticipant)
}

func TestGameService_ArrivalAndQuestion(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	sub := f.hub.Subscribe(f.pid, "test")
	f.start(t)

	cp := f.quest.Locations[0]
	res, err := f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: cp.Coordinates.Lat, Lng: cp.Coordinates.Lng})
	require.NoError(t, err)
	assert.True(t, res.Arrived)
	require.NotNil(t, res.DistanceM)
	assert.InDelta(t, 0, *res.DistanceM, 0.01)
	assert.Equal(t, model.StageArrived, res.Participation.Stage)

	_, err = f.svc.CurrentQuestion(context.Background(), "user:1", f.pid)
	assert.ErrorIs(t, err, ErrInvalidStage, "question hidden during the arrival delay")

	f.clock.Advance(1500 * time.Millisecond)
	view, err := f.svc.CurrentQuestion(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CheckpointIndex)
	assert.Equal(t, cp.ID, view.Checkpoint.ID)
	assert.Equal(t, "question:red_square", view.Question.ID)
	assert.True(t, view.AIAvailable)
	assert.True(t, view.StartedAt.Equal(t0.Add(1500*time.Millisecond)))
	assert.Equal(t, model.StageAnswering, f.parts.get(f.pid).Stage)

	assert.Equal(t, []EventType{EventSample, EventArrived, EventAnswering}, drain(sub))
}

func TestGameService_SampleTimestamp(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)

	at := t0.Add(-time.Minute)
	_, err := f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: 55.76, Lng: 37.61, Timestamp: &at})
	require.NoError(t, err)

	last, ok := f.parts.get(f.pid).LastSample()
	require.True(t, ok)
	assert.True(t, last.Timestamp.Equal(at))

	_, err = f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: 95, Lng: 37.61})
	assert.ErrorIs(t, err, ErrInvalidSample)

	// a device clock far ahead of the server is refused and not stored
	future := t0.AddDate(1, 0, 0)
	_, err = f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: 55.76, Lng: 37.61, Timestamp: &future})
	assert.ErrorIs(t, err, ErrInvalidSample)
	last, _ = f.parts.get(f.pid).LastSample()
	assert.True(t, last.Timestamp.Equal(at))
}

func TestGameService_FullRun(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	sub := f.hub.Subscribe(f.pid, "test")
	f.start(t)

	for i := range f.quest.Locations {
		f.walkTo(t, i)
		res := f.answer(t, i%4)
		assert.True(t, res.Correct)

		if i < len(f.quest.Locations)-1 {
			assert.True(t, res.Advanced)
			require.NotNil(t, res.NextCheckpoint)
			assert.Equal(t, f.quest.Locations[i+1].ID, res.NextCheckpoint.ID)
		} else {
			assert.True(t, res.Completed)
			assert.Nil(t, res.NextCheckpoint)
		}
	}

	p := f.parts.get(f.pid)
	assert.Equal(t, model.ParticipationCompleted, p.Status)
	assert.Equal(t, 200, p.TotalScore)
	assert.Equal(t, len(f.quest.Locations), p.CurrentLocationIndex)

	u := f.users.get("user:1")
	assert.Empty(t, u.CurrentQuest)
	assert.Equal(t, []string{f.quest.ID}, u.QuestsCompleted)
	assert.Equal(t, 1, f.metrics.finished["completed"])

	var types []model.NotificationType
	for _, n := range f.notifications.all() {
		types = append(types, n.Type)
	}
	assert.ElementsMatch(t, []model.NotificationType{model.NotificationQuestStart, model.NotificationQuestComplete}, types)

	events := drain(sub)
	require.NotEmpty(t, events)
	assert.Equal(t, EventCompleted, events[len(events)-1])

	_, err := f.svc.SubmitAnswer(context.Background(), "user:1", f.pid, model.AnswerInput{OptionIndex: ptrInt(0)})
	assert.ErrorIs(t, err, ErrParticipationEnded)
}

func TestGameService_WrongAnswerKeepsCheckpoint(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)
	f.walkTo(t, 0)

	res := f.answer(t, 3)
	assert.False(t, res.Correct)
	assert.Zero(t, res.Points)
	assert.False(t, res.Advanced)
	assert.Equal(t, model.StageAnswering, res.Participation.Stage)
	assert.Equal(t, 1, f.metrics.answers)

	_, err := f.svc.SubmitAnswer(context.Background(), "user:1", f.pid, model.AnswerInput{})
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestGameService_Disqualification(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	sub := f.hub.Subscribe(f.pid, "test")
	f.start(t)

	here := model.Coordinates{Lat: 55.76, Lng: 37.60}
	report := func(c model.Coordinates) *model.SampleResult {
		t.Helper()
		f.clock.Advance(10 * time.Second)
		res, err := f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: c.Lat, Lng: c.Lng})
		require.NoError(t, err)
		return res
	}

	report(here)
	for i := 1; i <= 3; i++ {
		// 500 m in 10 s is 180 km/h
		here = offsetNorth(here, 500)
		res := report(here)
		require.NotNil(t, res.Violation, "breach %d", i)
		assert.Equal(t, i, res.Violation.ViolationCount)
		if i < 3 {
			assert.False(t, res.Disqualified)
			report(here) // standing still ends the breach
		} else {
			assert.True(t, res.Disqualified)
			assert.Equal(t, model.ParticipationDisqualified, res.Participation.Status)
		}
	}

	assert.Equal(t, 3, f.metrics.violations)
	assert.Equal(t, 1, f.metrics.finished["disqualified"])
	assert.Empty(t, f.users.get("user:1").CurrentQuest)

	events := drain(sub)
	assert.Contains(t, events, EventViolation)
	assert.Equal(t, EventDisqualified, events[len(events)-1])

	_, err := f.svc.RecordLocation(context.Background(), "user:1", f.pid, &model.LocationSampleRequest{Lat: here.Lat, Lng: here.Lng})
	assert.ErrorIs(t, err, ErrDisqualified)
}

func TestGameService_ManualArrival(t *testing.T) {
	t.Parallel()

	t.Run("disabled by default", func(t *testing.T) {
		f := newGameFixture(t, DefaultGameRules())
		f.start(t)
		_, err := f.svc.ManualArrival(context.Background(), "user:1", f.pid)
		assert.ErrorIs(t, err, ErrManualArrivalDisabled)
	})

	t.Run("enabled", func(t *testing.T) {
		rules := DefaultGameRules()
		rules.AllowManualArrival = true
		f := newGameFixture(t, rules)
		f.start(t)

		view, err := f.svc.ManualArrival(context.Background(), "user:1", f.pid)
		require.NoError(t, err)
		assert.Equal(t, model.StageArrived, view.Stage)

		f.clock.Advance(rules.ManualArrivalDelay)
		q, err := f.svc.CurrentQuestion(context.Background(), "user:1", f.pid)
		require.NoError(t, err)
		assert.Equal(t, 0, q.CheckpointIndex)
	})
}

func TestGameService_RequestAIQuestion(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)
	f.walkTo(t, 0)

	view, err := f.svc.RequestAIQuestion(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.True(t, view.Question.IsAI)
	assert.Contains(t, view.Question.ID, "ai:")
	assert.Equal(t, model.DifficultyMedium, view.Question.Difficulty)
	assert.False(t, view.AIAvailable)

	_, err = f.svc.RequestAIQuestion(context.Background(), "user:1", f.pid)
	assert.ErrorIs(t, err, ErrAIQuestionUsed)
	assert.Equal(t, 1, f.generator.calls)

	res := f.answer(t, 1)
	assert.True(t, res.Correct)
	assert.True(t, res.Participation.Answers[0].IsAI)

	// the next checkpoint gets a fresh allowance
	f.walkTo(t, 1)
	_, err = f.svc.RequestAIQuestion(context.Background(), "user:1", f.pid)
	assert.NoError(t, err)
}

func TestGameService_RequestAIQuestion_Errors(t *testing.T) {
	t.Parallel()

	t.Run("before answering", func(t *testing.T) {
		f := newGameFixture(t, DefaultGameRules())
		f.start(t)
		_, err := f.svc.RequestAIQuestion(context.Background(), "user:1", f.pid)
		assert.ErrorIs(t, err, ErrInvalidStage)
		assert.Zero(t, f.generator.calls)
	})

	t.Run("generator failure", func(t *testing.T) {
		f := newGameFixture(t, DefaultGameRules())
		boom := errors.New("boom")
		f.generator.generateFunc = func(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error) {
			return nil, boom
		}
		f.start(t)
		f.walkTo(t, 0)

		_, err := f.svc.RequestAIQuestion(context.Background(), "user:1", f.pid)
		assert.ErrorIs(t, err, boom)
		assert.False(t, f.parts.get(f.pid).AIQuestionUsed)
	})

	t.Run("no generator", func(t *testing.T) {
		svc := NewGameService(GameServiceConfig{})
		_, err := svc.RequestAIQuestion(context.Background(), "user:1", "participation:1")
		assert.ErrorIs(t, err, ErrGeneratorUnavailable)
	})
}

func TestGameService_Cancel(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)

	view, err := f.svc.CancelParticipation(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.Equal(t, model.ParticipationCancelled, view.Status)
	assert.Empty(t, f.users.get("user:1").CurrentQuest)
	assert.Equal(t, 1, f.metrics.finished["cancelled"])

	_, err = f.svc.CancelParticipation(context.Background(), "user:1", f.pid)
	assert.ErrorIs(t, err, ErrParticipationEnded)
}

func TestGameService_FinishKeepsOtherCurrentQuest(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)

	u := f.users.get("user:1")
	u.CurrentQuest = "participation:other"
	require.NoError(t, f.users.Update(context.Background(), u))

	_, err := f.svc.CancelParticipation(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.Equal(t, "participation:other", f.users.get("user:1").CurrentQuest)
}

func TestGameService_SummaryAndProgress(t *testing.T) {
	t.Parallel()
	f := newGameFixture(t, DefaultGameRules())
	f.start(t)
	f.walkTo(t, 0)
	f.answer(t, 2) // wrong
	f.answer(t, 0)

	summary, err := f.svc.Summary(context.Background(), "user:1", f.pid)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CompletedLocations)
	assert.Equal(t, 4, summary.TotalLocations)
	assert.Equal(t, 2, summary.Answers)
	assert.Equal(t, 1, summary.CorrectAnswers)
	assert.InDelta(t, 0.5, summary.Accuracy, 1e-9)

	progress, err := f.svc.Progress(context.Background(), "user:1", f.quest.ID)
	require.NoError(t, err)
	assert.Equal(t, f.pid, progress.ParticipationID)
	assert.Equal(t, 1, progress.CurrentLocation)
	assert.Equal(t, []string{"location:red_square"}, progress.VisitedLocations)
	assert.Equal(t, []string{"question:red_square"}, progress.AnsweredQuestions)

	_, err = f.svc.Progress(context.Background(), "user:2", f.quest.ID)
	assert.ErrorIs(t, err, ErrParticipationNotFound)
}
