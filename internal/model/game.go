package model

import "time"

// SampleResult is the response to a location report
type SampleResult struct {
	Participation ParticipationView `json:"participation"`
	SpeedKmh      float64           `json:"speed"`
	DistanceM     *float64          `json:"distance_to_checkpoint,omitempty"`
	Violation     *SpeedViolation   `json:"violation,omitempty"`
	Arrived       bool              `json:"arrived"`
	Disqualified  bool              `json:"disqualified"`
}

// QuestionView is the active question together with its checkpoint
type QuestionView struct {
	ParticipationID string         `json:"participation_id"`
	Checkpoint      PublicLocation `json:"checkpoint"`
	CheckpointIndex int            `json:"checkpoint_index"`
	Question        PublicQuestion `json:"question"`
	StartedAt       time.Time      `json:"started_at"`
	AIAvailable     bool           `json:"ai_available"`
}

// AnswerResult is the response to a submitted answer. The correct answer is
// never revealed.
type AnswerResult struct {
	Correct        bool              `json:"correct"`
	Points         int               `json:"points"`
	TimeSpentMs    int64             `json:"time_spent"`
	TotalScore     int               `json:"total_score"`
	Advanced       bool              `json:"advanced"`
	Completed      bool              `json:"completed"`
	NextCheckpoint *PublicLocation   `json:"next_checkpoint,omitempty"`
	Participation  ParticipationView `json:"participation"`
}

// SubmitAnswerRequest is the answer form
type SubmitAnswerRequest struct {
	AnswerInput
}

// Validate validates the answer form
func (r *SubmitAnswerRequest) Validate() []FieldError {
	if r.IsEmpty() {
		return []FieldError{{Field: "answer", Message: "option_index or text is required"}}
	}
	return nil
}
