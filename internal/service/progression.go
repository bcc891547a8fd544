package service

import (
	"math"
	"time"

	"github.com/forgo/cityquest/internal/model"
)

// GameRules are the tunable quest rules
type GameRules struct {
	SpeedLimitKmh      float64
	MaxViolations      int
	ArrivalRadiusM     float64
	ArrivalDelay       time.Duration
	ManualArrivalDelay time.Duration
	SampleHistory      int
	AllowManualArrival bool
}

// DefaultGameRules returns the standard walking-quest rules
func DefaultGameRules() GameRules {
	return GameRules{
		SpeedLimitKmh:      27,
		MaxViolations:      3,
		ArrivalRadiusM:     10,
		ArrivalDelay:       1500 * time.Millisecond,
		ManualArrivalDelay: time.Second,
		SampleHistory:      10,
	}
}

// Time bonus: a correct answer earns up to this many extra points, minus one
// per whole second spent on the question.
const maxTimeBonus = 30

// maxClockSkew is how far ahead of the server clock a device timestamp may be
const maxClockSkew = 10 * time.Second

// SampleOutcome describes what a location sample changed
type SampleOutcome struct {
	SpeedKmh      float64
	SpeedMeasured bool
	DistanceM     float64
	Violation     *model.SpeedViolation
	Arrived       bool
	Answering     bool
	Disqualified  bool
}

// AnswerOutcome describes the result of a submitted answer
type AnswerOutcome struct {
	Record    model.AnswerRecord
	Advanced  bool
	Completed bool
}

// Progression is the quest state machine. It performs no I/O; every
// transition takes the current time from the caller.
type Progression struct {
	rules GameRules
	geo   *GeoService
}

// NewProgression creates a state machine for the given rules
func NewProgression(rules GameRules, geo *GeoService) *Progression {
	if geo == nil {
		geo = NewGeoService()
	}
	return &Progression{rules: rules, geo: geo}
}

// Rules returns the rules in effect
func (g *Progression) Rules() GameRules {
	return g.rules
}

// Start moves a registered participation onto the first checkpoint
func (g *Progression) Start(p *model.Participation, quest *model.Quest, now time.Time) error {
	if p.Status != model.ParticipationRegistered {
		if p.Status.IsTerminal() {
			return terminalError(p)
		}
		return ErrInvalidStatus
	}
	if quest.RouteLength() == 0 {
		return ErrEmptyRoute
	}

	p.Status = model.ParticipationInProgress
	p.Stage = model.StageWaiting
	p.CurrentLocationIndex = 0
	p.StartTime = &now
	p.CompletedLocations = []string{}
	p.RecentSamples = nil
	p.ArrivedAt = nil
	p.QuestionStartedAt = nil
	p.ActiveQuestion = nil
	p.AIQuestionUsed = false
	p.InViolation = false
	p.LastSpeedKmh = 0
	return nil
}

// Settle performs the delayed arrived -> answering transition once the
// arrival delay has elapsed. It reports whether the stage changed.
func (g *Progression) Settle(p *model.Participation, quest *model.Quest, now time.Time) bool {
	if p.Status != model.ParticipationInProgress || p.Stage != model.StageArrived || p.ArrivedAt == nil {
		return false
	}
	ready := p.ArrivedAt.Add(time.Duration(p.ArrivalDelayMs) * time.Millisecond)
	if now.Before(ready) {
		return false
	}

	p.Stage = model.StageAnswering
	p.QuestionStartedAt = &ready
	if p.ActiveQuestion == nil {
		if cp, ok := quest.Checkpoint(p.CurrentLocationIndex); ok {
			if q, ok := cp.FirstQuestion(); ok {
				if q.LocationID == "" {
					q.LocationID = cp.ID
				}
				p.ActiveQuestion = q
			}
		}
	}
	return true
}

// ApplySample feeds one position report into the participation
func (g *Progression) ApplySample(p *model.Participation, quest *model.Quest, sample model.LocationSample, now time.Time) (SampleOutcome, error) {
	out := SampleOutcome{DistanceM: -1}

	if err := requireInProgress(p); err != nil {
		return out, err
	}
	if len(sample.Validate()) > 0 || sample.Timestamp.After(now.Add(maxClockSkew)) {
		return out, ErrInvalidSample
	}
	sample.ReceivedAt = now

	out.Answering = g.Settle(p, quest, now)

	prev, hasPrev := p.LastSample()
	var interval time.Duration
	if hasPrev {
		interval = sampleInterval(prev, sample)
	}
	if interval > 0 {
		dist := g.geo.HaversineMeters(prev.Coordinates(), sample.Coordinates())
		out.SpeedKmh = g.geo.SpeedKmh(dist, interval)
		out.SpeedMeasured = true
		p.LastSpeedKmh = out.SpeedKmh

		violating := out.SpeedKmh > g.rules.SpeedLimitKmh
		if violating && !p.InViolation {
			v := model.SpeedViolation{
				Timestamp:      sample.Timestamp,
				Speed:          out.SpeedKmh,
				Location:       sample.Coordinates(),
				ViolationCount: p.ViolationCount() + 1,
			}
			p.SpeedViolations = append(p.SpeedViolations, v)
			out.Violation = &v
		}
		p.InViolation = violating

		if p.ViolationCount() >= g.rules.MaxViolations {
			g.disqualify(p, now)
			out.Disqualified = true
			return out, nil
		}
	}

	// Older samples than the newest one are ignored for history so the next
	// speed estimate is taken against the latest known position.
	if !hasPrev || !sample.Timestamp.Before(prev.Timestamp) {
		p.RecentSamples = append(p.RecentSamples, sample)
		if n := g.historySize(); len(p.RecentSamples) > n {
			p.RecentSamples = append([]model.LocationSample(nil), p.RecentSamples[len(p.RecentSamples)-n:]...)
		}
	}

	cp, ok := quest.Checkpoint(p.CurrentLocationIndex)
	if !ok {
		return out, nil
	}
	out.DistanceM = g.geo.HaversineMeters(sample.Coordinates(), cp.Coordinates)

	if p.Stage == model.StageWaiting && out.DistanceM <= g.rules.ArrivalRadiusM {
		g.arrive(p, now, g.rules.ArrivalDelay)
		out.Arrived = true
		if g.Settle(p, quest, now) {
			out.Answering = true
		}
	}
	return out, nil
}

// ManualArrival marks the player as arrived without a geofence match
func (g *Progression) ManualArrival(p *model.Participation, quest *model.Quest, now time.Time) (answering bool, err error) {
	if !g.rules.AllowManualArrival {
		return false, ErrManualArrivalDisabled
	}
	if err := requireInProgress(p); err != nil {
		return false, err
	}
	if p.Stage != model.StageWaiting {
		return false, ErrInvalidStage
	}

	g.arrive(p, now, g.rules.ManualArrivalDelay)
	return g.Settle(p, quest, now), nil
}

// SubmitAnswer grades an answer for the current checkpoint
func (g *Progression) SubmitAnswer(p *model.Participation, quest *model.Quest, answer model.AnswerInput, now time.Time) (AnswerOutcome, error) {
	var out AnswerOutcome

	if err := requireInProgress(p); err != nil {
		return out, err
	}
	g.Settle(p, quest, now)
	if p.Stage != model.StageAnswering {
		return out, ErrInvalidStage
	}
	if answer.IsEmpty() {
		return out, ErrEmptyAnswer
	}
	q := p.ActiveQuestion
	cp, ok := quest.Checkpoint(p.CurrentLocationIndex)
	if q == nil || !ok {
		return out, ErrQuestionNotFound
	}

	started := now
	if p.QuestionStartedAt != nil {
		started = *p.QuestionStartedAt
	}
	spent := now.Sub(started)
	if spent < 0 {
		spent = 0
	}

	correct, recorded := q.Check(answer)
	points := 0
	if correct {
		points = ScoreAnswer(q.Difficulty, spent)
	}

	out.Record = model.AnswerRecord{
		LocationID:  cp.ID,
		QuestionID:  q.ID,
		Answer:      recorded,
		IsCorrect:   correct,
		Timestamp:   now,
		TimeSpentMs: spent.Milliseconds(),
		Points:      points,
		IsAI:        q.IsAI,
	}
	p.Answers = append(p.Answers, out.Record)
	p.TotalScore += points

	if !correct {
		// Retry: the same question stays active with a fresh timer.
		p.QuestionStartedAt = &now
		return out, nil
	}

	p.CompletedLocations = append(p.CompletedLocations, cp.ID)
	p.ActiveQuestion = nil
	p.ArrivedAt = nil
	p.QuestionStartedAt = nil
	p.AIQuestionUsed = false

	if p.CurrentLocationIndex >= quest.RouteLength()-1 {
		p.CurrentLocationIndex = quest.RouteLength()
		p.Status = model.ParticipationCompleted
		p.Stage = model.StageCompleted
		p.EndTime = &now
		if p.StartTime != nil {
			p.CompletionTimeMs = now.Sub(*p.StartTime).Milliseconds()
		}
		out.Completed = true
		return out, nil
	}

	p.CurrentLocationIndex++
	p.Stage = model.StageWaiting
	out.Advanced = true
	return out, nil
}

// ReplaceWithAIQuestion swaps the active question for a generated one.
// Allowed once per checkpoint, only while answering. The question timer
// keeps running from the original question.
func (g *Progression) ReplaceWithAIQuestion(p *model.Participation, quest *model.Quest, q *model.Question, now time.Time) error {
	if err := requireInProgress(p); err != nil {
		return err
	}
	g.Settle(p, quest, now)
	if p.Stage != model.StageAnswering {
		return ErrInvalidStage
	}
	if p.AIQuestionUsed {
		return ErrAIQuestionUsed
	}
	if cp, ok := quest.Checkpoint(p.CurrentLocationIndex); ok {
		q.LocationID = cp.ID
	}

	q.IsAI = true
	p.ActiveQuestion = q
	p.AIQuestionUsed = true
	if p.QuestionStartedAt == nil {
		p.QuestionStartedAt = &now
	}
	return nil
}

// Cancel ends a registered or running participation at the player's request
func (g *Progression) Cancel(p *model.Participation, now time.Time) error {
	if p.Status.IsTerminal() {
		return terminalError(p)
	}
	p.Status = model.ParticipationCancelled
	p.EndTime = &now
	p.ActiveQuestion = nil
	return nil
}

// CurrentCheckpoint returns the location the player is heading to or standing at
func (g *Progression) CurrentCheckpoint(p *model.Participation, quest *model.Quest) (*model.Location, bool) {
	if p.Status != model.ParticipationInProgress {
		return nil, false
	}
	return quest.Checkpoint(p.CurrentLocationIndex)
}

// ScoreAnswer returns the points for a correct answer
func ScoreAnswer(d model.Difficulty, spent time.Duration) int {
	bonus := maxTimeBonus - int(math.Floor(spent.Seconds()))
	if bonus < 0 {
		bonus = 0
	}
	return d.BasePoints() + bonus
}

func (g *Progression) arrive(p *model.Participation, now time.Time, delay time.Duration) {
	p.Stage = model.StageArrived
	p.ArrivedAt = &now
	p.ArrivalDelayMs = delay.Milliseconds()
}

func (g *Progression) disqualify(p *model.Participation, now time.Time) {
	p.Status = model.ParticipationDisqualified
	p.Stage = model.StageDisqualified
	p.EndTime = &now
	p.ActiveQuestion = nil
}

// sampleInterval is the device time between two samples, capped by the
// server time between receiving them. Device clocks cannot stretch it.
func sampleInterval(prev, next model.LocationSample) time.Duration {
	elapsed := next.Timestamp.Sub(prev.Timestamp)
	if prev.ReceivedAt.IsZero() || next.ReceivedAt.IsZero() {
		return elapsed
	}
	if received := next.ReceivedAt.Sub(prev.ReceivedAt); received < elapsed {
		return received
	}
	return elapsed
}

func (g *Progression) historySize() int {
	if g.rules.SampleHistory < 1 {
		return 1
	}
	return g.rules.SampleHistory
}

func requireInProgress(p *model.Participation) error {
	switch {
	case p.Status == model.ParticipationInProgress:
		return nil
	case p.Status.IsTerminal():
		return terminalError(p)
	default:
		return ErrInvalidStatus
	}
}

func terminalError(p *model.Participation) error {
	if p.Status == model.ParticipationDisqualified {
		return ErrDisqualified
	}
	return ErrParticipationEnded
}
