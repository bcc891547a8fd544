package model

import "time"

// ParticipationStatus is the lifecycle of a player's run through a quest
type ParticipationStatus string

const (
	ParticipationRegistered   ParticipationStatus = "registered"
	ParticipationInProgress   ParticipationStatus = "in_progress"
	ParticipationCompleted    ParticipationStatus = "completed"
	ParticipationDisqualified ParticipationStatus = "disqualified"
	ParticipationCancelled    ParticipationStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s ParticipationStatus) IsTerminal() bool {
	return s == ParticipationCompleted || s == ParticipationDisqualified || s == ParticipationCancelled
}

// Stage is the player's position within the current checkpoint
type Stage string

const (
	StageWaiting      Stage = "waiting"
	StageArrived      Stage = "arrived"
	StageAnswering    Stage = "answering"
	StageCompleted    Stage = "completed"
	StageDisqualified Stage = "disqualified"
)

// LocationSample is one position report from the player's device.
// Timestamp is the device clock, ReceivedAt the server clock.
type LocationSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Timestamp  time.Time `json:"timestamp"`
	ReceivedAt time.Time `json:"received_at"`
}

// Coordinates returns the sampled point
func (s LocationSample) Coordinates() Coordinates {
	return Coordinates{Lat: s.Lat, Lng: s.Lng}
}

// Validate checks the sampled point
func (s LocationSample) Validate() []FieldError {
	return s.Coordinates().Validate("")
}

// AnswerRecord is one submitted answer, right or wrong
type AnswerRecord struct {
	LocationID  string    `json:"location_id"`
	QuestionID  string    `json:"question_id"`
	Answer      string    `json:"answer"`
	IsCorrect   bool      `json:"is_correct"`
	Timestamp   time.Time `json:"timestamp"`
	TimeSpentMs int64     `json:"time_spent"`
	Points      int       `json:"points"`
	IsAI        bool      `json:"is_ai,omitempty"`
}

// SpeedViolation is one counted breach of the speed limit
type SpeedViolation struct {
	Timestamp      time.Time   `json:"timestamp"`
	Speed          float64     `json:"speed"`
	Location       Coordinates `json:"location"`
	ViolationCount int         `json:"violation_count"`
}

// Participation is a player's registration for and progress through a quest
type Participation struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"user_id"`
	QuestID              string              `json:"quest_id"`
	Status               ParticipationStatus `json:"status"`
	CurrentLocationIndex int                 `json:"current_location_index"`
	RegistrationTime     time.Time           `json:"registration_time"`
	ScheduledStart       *time.Time          `json:"scheduled_start,omitempty"`
	StartTime            *time.Time          `json:"start_time,omitempty"`
	EndTime              *time.Time          `json:"end_time,omitempty"`
	PaymentID            string              `json:"payment_id"`
	Answers              []AnswerRecord      `json:"answers"`
	SpeedViolations      []SpeedViolation    `json:"speed_violations"`
	TotalScore           int                 `json:"total_score"`
	CompletionTimeMs     int64               `json:"completion_time,omitempty"`

	Stage              Stage            `json:"stage"`
	ArrivedAt          *time.Time       `json:"arrived_at,omitempty"`
	ArrivalDelayMs     int64            `json:"arrival_delay_ms,omitempty"`
	QuestionStartedAt  *time.Time       `json:"question_started_at,omitempty"`
	ActiveQuestion     *Question        `json:"active_question,omitempty"`
	AIQuestionUsed     bool             `json:"ai_question_used"`
	CompletedLocations []string         `json:"completed_locations"`
	RecentSamples      []LocationSample `json:"recent_samples"`
	LastSpeedKmh       float64          `json:"last_speed"`
	InViolation        bool             `json:"in_violation"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// IsActive reports whether the participation still occupies the player
func (p *Participation) IsActive() bool {
	return !p.Status.IsTerminal()
}

// ViolationCount is the number of counted speed breaches
func (p *Participation) ViolationCount() int {
	return len(p.SpeedViolations)
}

// LastSample returns the most recent position report
func (p *Participation) LastSample() (LocationSample, bool) {
	if len(p.RecentSamples) == 0 {
		return LocationSample{}, false
	}
	return p.RecentSamples[len(p.RecentSamples)-1], true
}

// ParticipationView is what the owner sees: the active question is hidden
// behind the question endpoint and samples stay server-side.
type ParticipationView struct {
	ID                   string              `json:"id"`
	QuestID              string              `json:"quest_id"`
	Status               ParticipationStatus `json:"status"`
	Stage                Stage               `json:"stage"`
	CurrentLocationIndex int                 `json:"current_location_index"`
	RegistrationTime     time.Time           `json:"registration_time"`
	ScheduledStart       *time.Time          `json:"scheduled_start,omitempty"`
	StartTime            *time.Time          `json:"start_time,omitempty"`
	EndTime              *time.Time          `json:"end_time,omitempty"`
	Answers              []AnswerRecord      `json:"answers"`
	SpeedViolations      []SpeedViolation    `json:"speed_violations"`
	TotalScore           int                 `json:"total_score"`
	CompletionTimeMs     int64               `json:"completion_time,omitempty"`
	CompletedLocations   []string            `json:"completed_locations"`
	LastSpeedKmh         float64             `json:"last_speed"`
	AIQuestionUsed       bool                `json:"ai_question_used"`
}

// ToView builds the owner view
func (p *Participation) ToView() ParticipationView {
	return ParticipationView{
		ID:                   p.ID,
		QuestID:              p.QuestID,
		Status:               p.Status,
		Stage:                p.Stage,
		CurrentLocationIndex: p.CurrentLocationIndex,
		RegistrationTime:     p.RegistrationTime,
		ScheduledStart:       p.ScheduledStart,
		StartTime:            p.StartTime,
		EndTime:              p.EndTime,
		Answers:              nonNilAnswers(p.Answers),
		SpeedViolations:      nonNilViolations(p.SpeedViolations),
		TotalScore:           p.TotalScore,
		CompletionTimeMs:     p.CompletionTimeMs,
		CompletedLocations:   nonNilStrings(p.CompletedLocations),
		LastSpeedKmh:         p.LastSpeedKmh,
		AIQuestionUsed:       p.AIQuestionUsed,
	}
}

// RegisterParticipationRequest enrolls the caller in a paid quest
type RegisterParticipationRequest struct {
	PaymentID      string     `json:"payment_id"`
	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
}

// Validate validates the enrollment request
func (r *RegisterParticipationRequest) Validate() []FieldError {
	if r.PaymentID == "" {
		return []FieldError{{Field: "payment_id", Message: "payment_id is required"}}
	}
	return nil
}

// LocationSampleRequest is a position report posted by the Mini-App. A zero
// timestamp means "now".
type LocationSampleRequest struct {
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func nonNilAnswers(a []AnswerRecord) []AnswerRecord {
	if a == nil {
		return []AnswerRecord{}
	}
	return a
}

func nonNilViolations(v []SpeedViolation) []SpeedViolation {
	if v == nil {
		return []SpeedViolation{}
	}
	return v
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
