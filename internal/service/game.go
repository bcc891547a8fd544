package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/google/uuid"
)

// GameNotifier is told about quest milestones
type GameNotifier interface {
	QuestStarted(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation) error
	QuestCompleted(ctx context.Context, u *model.User, quest *model.Quest, p *model.Participation) error
	CancelReminders(ctx context.Context, participationID string) error
}

// GameService runs a player's quest: it loads the participation, applies a
// Progression transition under a per-participation lock, stores the result
// and publishes it to live streams.
type GameService struct {
	participations ParticipationRepository
	quests         QuestRepository
	users          UserRepository
	progression    *Progression
	generator      QuestionGenerator
	notifier       GameNotifier
	hub            *EventHub
	metrics        Metrics
	now            func() time.Time

	locks sync.Map // participation ID -> *sync.Mutex
}

// GameServiceConfig holds configuration for the game service
type GameServiceConfig struct {
	Participations ParticipationRepository
	Quests         QuestRepository
	Users          UserRepository
	Progression    *Progression
	Generator      QuestionGenerator
	Notifier       GameNotifier
	Hub            *EventHub
	Metrics        Metrics
	Now            func() time.Time
}

// NewGameService creates a new game service
func NewGameService(cfg GameServiceConfig) *GameService {
	progression := cfg.Progression
	if progression == nil {
		progression = NewProgression(DefaultGameRules(), nil)
	}
	return &GameService{
		participations: cfg.Participations,
		quests:         cfg.Quests,
		users:          cfg.Users,
		progression:    progression,
		generator:      cfg.Generator,
		notifier:       cfg.Notifier,
		hub:            cfg.Hub,
		metrics:        metricsOrNop(cfg.Metrics),
		now:            nowOrDefault(cfg.Now),
	}
}

// Rules returns the game rules in effect
func (s *GameService) Rules() GameRules {
	return s.progression.Rules()
}

// StartQuest begins a registered participation
func (s *GameService) StartQuest(ctx context.Context, userID, participationID string) (*model.Participation, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.progression.Start(p, quest, now); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p, now); err != nil {
		return nil, err
	}
	s.metrics.ParticipationStarted()

	if s.notifier != nil {
		if err := s.notifier.CancelReminders(ctx, p.ID); err != nil {
			slog.WarnContext(ctx, "failed to cancel reminders", "participation_id", p.ID, "error", err)
		}
		if u, err := s.users.GetByID(ctx, p.UserID); err == nil && u != nil {
			if err := s.notifier.QuestStarted(ctx, u, quest, p); err != nil {
				slog.WarnContext(ctx, "failed to enqueue start notification", "participation_id", p.ID, "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "quest started", "participation_id", p.ID, "quest_id", quest.ID, "user_id", p.UserID)
	return p, nil
}

// RecordLocation feeds a position report into the game. A zero timestamp is
// taken as now.
func (s *GameService) RecordLocation(ctx context.Context, userID, participationID string, req *model.LocationSampleRequest) (*model.SampleResult, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sample := model.LocationSample{Lat: req.Lat, Lng: req.Lng, Timestamp: now}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		sample.Timestamp = req.Timestamp.UTC()
	}

	out, err := s.progression.ApplySample(p, quest, sample, now)
	if err != nil {
		return nil, err
	}
	s.metrics.SampleRecorded()

	if out.Disqualified {
		if err := s.finish(ctx, p, quest, now); err != nil {
			return nil, err
		}
	} else if err := s.save(ctx, p, now); err != nil {
		return nil, err
	}

	result := &model.SampleResult{
		Participation: p.ToView(),
		SpeedKmh:      out.SpeedKmh,
		Violation:     out.Violation,
		Arrived:       out.Arrived,
		Disqualified:  out.Disqualified,
	}
	if out.DistanceM >= 0 {
		d := out.DistanceM
		result.DistanceM = &d
	}

	s.publish(EventSample, p.ID, map[string]interface{}{
		"lat":                    sample.Lat,
		"lng":                    sample.Lng,
		"speed":                  out.SpeedKmh,
		"distance_to_checkpoint": result.DistanceM,
		"stage":                  p.Stage,
	})
	if out.Violation != nil {
		s.metrics.SpeedViolation()
		s.publish(EventViolation, p.ID, out.Violation)
		slog.InfoContext(ctx, "speed violation",
			"participation_id", p.ID,
			"speed_kmh", out.Violation.Speed,
			"count", out.Violation.ViolationCount,
		)
	}
	if out.Disqualified {
		s.publish(EventDisqualified, p.ID, p.ToView())
		return result, nil
	}
	if out.Arrived {
		s.publish(EventArrived, p.ID, map[string]interface{}{"checkpoint_index": p.CurrentLocationIndex})
	}
	if out.Answering {
		s.publishAnswering(p, quest)
	}
	return result, nil
}

// ManualArrival marks the player as arrived at the current checkpoint
func (s *GameService) ManualArrival(ctx context.Context, userID, participationID string) (*model.ParticipationView, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	answering, err := s.progression.ManualArrival(p, quest, now)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, p, now); err != nil {
		return nil, err
	}

	s.publish(EventArrived, p.ID, map[string]interface{}{"checkpoint_index": p.CurrentLocationIndex, "manual": true})
	if answering {
		s.publishAnswering(p, quest)
	}
	view := p.ToView()
	return &view, nil
}

// CurrentQuestion returns the active question once the arrival delay is over
func (s *GameService) CurrentQuestion(ctx context.Context, userID, participationID string) (*model.QuestionView, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(p); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if s.progression.Settle(p, quest, now) {
		if err := s.save(ctx, p, now); err != nil {
			return nil, err
		}
		s.publishAnswering(p, quest)
	}
	if p.Stage != model.StageAnswering {
		return nil, ErrInvalidStage
	}
	return s.questionView(p, quest)
}

// SubmitAnswer grades an answer to the active question
func (s *GameService) SubmitAnswer(ctx context.Context, userID, participationID string, answer model.AnswerInput) (*model.AnswerResult, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	out, err := s.progression.SubmitAnswer(p, quest, answer, now)
	if err != nil {
		return nil, err
	}
	s.metrics.AnswerSubmitted(out.Record.IsCorrect, out.Record.IsAI)

	if out.Completed {
		if err := s.finish(ctx, p, quest, now); err != nil {
			return nil, err
		}
	} else if err := s.save(ctx, p, now); err != nil {
		return nil, err
	}

	result := &model.AnswerResult{
		Correct:       out.Record.IsCorrect,
		Points:        out.Record.Points,
		TimeSpentMs:   out.Record.TimeSpentMs,
		TotalScore:    p.TotalScore,
		Advanced:      out.Advanced,
		Completed:     out.Completed,
		Participation: p.ToView(),
	}
	if out.Advanced {
		if cp, ok := quest.Checkpoint(p.CurrentLocationIndex); ok {
			next := cp.ToPublic()
			result.NextCheckpoint = &next
		}
	}

	s.publish(EventAnswer, p.ID, map[string]interface{}{
		"correct":     out.Record.IsCorrect,
		"points":      out.Record.Points,
		"total_score": p.TotalScore,
	})
	if out.Completed {
		s.publish(EventCompleted, p.ID, p.ToView())
	}
	return result, nil
}

// RequestAIQuestion swaps the active question for a generated one, once per
// checkpoint. Generation happens outside the lock so location reports keep
// flowing meanwhile.
func (s *GameService) RequestAIQuestion(ctx context.Context, userID, participationID string) (*model.QuestionView, error) {
	if s.generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	loc, difficulty, err := s.aiPreflight(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	q, err := s.generator.Generate(ctx, loc, difficulty)
	if err != nil {
		return nil, err
	}
	q.ID = "ai:" + uuid.New().String()
	q.CreatedAt = s.now().UTC()

	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}
	if cp, ok := quest.Checkpoint(p.CurrentLocationIndex); !ok || cp.ID != loc.ID {
		// the player moved on while the question was being written
		return nil, ErrInvalidStage
	}

	now := s.now().UTC()
	if err := s.progression.ReplaceWithAIQuestion(p, quest, q, now); err != nil {
		return nil, err
	}
	if err := s.save(ctx, p, now); err != nil {
		return nil, err
	}

	s.publishAnswering(p, quest)
	return s.questionView(p, quest)
}

func (s *GameService) aiPreflight(ctx context.Context, userID, participationID string) (*model.Location, model.Difficulty, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, "", err
	}
	if err := requireInProgress(p); err != nil {
		return nil, "", err
	}
	s.progression.Settle(p, quest, s.now().UTC())
	if p.Stage != model.StageAnswering {
		return nil, "", ErrInvalidStage
	}
	if p.AIQuestionUsed {
		return nil, "", ErrAIQuestionUsed
	}

	cp, ok := quest.Checkpoint(p.CurrentLocationIndex)
	if !ok {
		return nil, "", ErrInvalidStage
	}
	difficulty := model.DifficultyMedium
	if p.ActiveQuestion != nil {
		difficulty = p.ActiveQuestion.Difficulty.Normalize()
	}
	loc := *cp
	return &loc, difficulty, nil
}

// CancelParticipation ends a registered or running participation
func (s *GameService) CancelParticipation(ctx context.Context, userID, participationID string) (*model.ParticipationView, error) {
	unlock := s.lock(participationID)
	defer unlock()

	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.progression.Cancel(p, now); err != nil {
		return nil, err
	}
	if err := s.finish(ctx, p, quest, now); err != nil {
		return nil, err
	}

	s.publish(EventCancelled, p.ID, p.ToView())
	view := p.ToView()
	return &view, nil
}

// GetParticipation returns the owner's view of a participation
func (s *GameService) GetParticipation(ctx context.Context, userID, participationID string) (*model.ParticipationView, error) {
	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}
	s.progression.Settle(p, quest, s.now().UTC())
	view := p.ToView()
	return &view, nil
}

// Summary returns the results screen of a participation
func (s *GameService) Summary(ctx context.Context, userID, participationID string) (*model.ParticipationSummary, error) {
	p, quest, err := s.load(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}
	summary := BuildSummary(p, quest, s.now().UTC())
	return &summary, nil
}

// Progress returns the player's latest participation in a quest as a
// progress report
func (s *GameService) Progress(ctx context.Context, userID, questID string) (*model.UserProgress, error) {
	quest, err := s.quests.GetByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		return nil, ErrQuestNotFound
	}

	list, err := s.participations.ListByUser(ctx, userID, questID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrParticipationNotFound
	}

	progress := BuildUserProgress(&list[0], quest, s.now().UTC())
	return &progress, nil
}

// Authorize checks that the participation belongs to the user. Used before
// opening a live stream.
func (s *GameService) Authorize(ctx context.Context, userID, participationID string) error {
	_, _, err := s.load(ctx, userID, participationID)
	return err
}

func (s *GameService) lock(participationID string) func() {
	m, _ := s.locks.LoadOrStore(participationID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *GameService) load(ctx context.Context, userID, participationID string) (*model.Participation, *model.Quest, error) {
	p, err := s.participations.GetByID(ctx, participationID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, ErrParticipationNotFound
	}
	if p.UserID != userID {
		return nil, nil, ErrNotParticipant
	}

	quest, err := s.quests.GetByID(ctx, p.QuestID)
	if err != nil {
		return nil, nil, err
	}
	if quest == nil {
		return nil, nil, ErrQuestNotFound
	}
	return p, quest, nil
}

func (s *GameService) save(ctx context.Context, p *model.Participation, now time.Time) error {
	p.UpdatedAt = now
	if err := s.participations.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to save participation: %w", err)
	}
	return nil
}

// finish stores a terminal participation together with the player's quest
// lists
func (s *GameService) finish(ctx context.Context, p *model.Participation, quest *model.Quest, now time.Time) error {
	p.UpdatedAt = now

	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return s.save(ctx, p, now)
	}

	if u.CurrentQuest == p.ID {
		u.CurrentQuest = ""
	}
	if p.Status == model.ParticipationCompleted && !u.HasCompleted(p.QuestID) {
		u.QuestsCompleted = append(u.QuestsCompleted, p.QuestID)
	}
	u.UpdatedAt = now

	if err := s.participations.UpdateWithUser(ctx, p, u); err != nil {
		return fmt.Errorf("failed to save participation: %w", err)
	}

	var elapsed time.Duration
	if p.StartTime != nil {
		elapsed = now.Sub(*p.StartTime)
	}
	s.metrics.ParticipationFinished(string(p.Status), p.TotalScore, elapsed)

	if s.notifier != nil {
		if err := s.notifier.CancelReminders(ctx, p.ID); err != nil {
			slog.WarnContext(ctx, "failed to cancel reminders", "participation_id", p.ID, "error", err)
		}
		if p.Status == model.ParticipationCompleted {
			if err := s.notifier.QuestCompleted(ctx, u, quest, p); err != nil {
				slog.WarnContext(ctx, "failed to enqueue completion notification", "participation_id", p.ID, "error", err)
			}
		}
	}

	slog.InfoContext(ctx, "participation finished",
		"participation_id", p.ID,
		"status", p.Status,
		"score", p.TotalScore,
		"violations", p.ViolationCount(),
	)
	return nil
}

func (s *GameService) questionView(p *model.Participation, quest *model.Quest) (*model.QuestionView, error) {
	cp, ok := quest.Checkpoint(p.CurrentLocationIndex)
	if !ok || p.ActiveQuestion == nil {
		return nil, ErrQuestionNotFound
	}

	view := &model.QuestionView{
		ParticipationID: p.ID,
		Checkpoint:      cp.ToPublic(),
		CheckpointIndex: p.CurrentLocationIndex,
		Question:        p.ActiveQuestion.ToPublic(),
		AIAvailable:     !p.AIQuestionUsed && s.generator != nil,
	}
	if p.QuestionStartedAt != nil {
		view.StartedAt = *p.QuestionStartedAt
	}
	return view, nil
}

func (s *GameService) publish(t EventType, participationID string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(NewParticipationEvent(t, participationID, data))
}

func (s *GameService) publishAnswering(p *model.Participation, quest *model.Quest) {
	if view, err := s.questionView(p, quest); err == nil {
		s.publish(EventAnswering, p.ID, view)
	}
}
