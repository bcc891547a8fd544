package model

import "time"

// QuestStatistics aggregates all participations of one quest
type QuestStatistics struct {
	QuestID                  string   `json:"quest_id"`
	TotalParticipants        int      `json:"total_participants"`
	CompletedParticipants    int      `json:"completed_participants"`
	DisqualifiedParticipants int      `json:"disqualified_participants"`
	AverageCompletionTimeMs  float64  `json:"average_completion_time"`
	AverageScore             float64  `json:"average_score"`
	PopularLocations         []string `json:"popular_locations"`
	CommonMistakes           []string `json:"common_mistakes"`
}

// UserProgress is a compact progress report for one player and quest
type UserProgress struct {
	UserID            string    `json:"user_id"`
	QuestID           string    `json:"quest_id"`
	ParticipationID   string    `json:"participation_id"`
	Status            string    `json:"status"`
	CurrentLocation   int       `json:"current_location"`
	TotalLocations    int       `json:"total_locations"`
	VisitedLocations  []string  `json:"visited_locations"`
	AnsweredQuestions []string  `json:"answered_questions"`
	Score             int       `json:"score"`
	TimeSpentMs       int64     `json:"time_spent"`
	LastActivity      time.Time `json:"last_activity"`
}

// ParticipationSummary is the results screen of a finished or running quest
type ParticipationSummary struct {
	ParticipationID    string              `json:"participation_id"`
	Status             ParticipationStatus `json:"status"`
	CompletedLocations int                 `json:"completed_locations"`
	TotalLocations     int                 `json:"total_locations"`
	Score              int                 `json:"score"`
	ElapsedMs          int64               `json:"elapsed_ms"`
	Answers            int                 `json:"answers"`
	CorrectAnswers     int                 `json:"correct_answers"`
	Accuracy           float64             `json:"accuracy"`
	SpeedViolations    int                 `json:"speed_violations"`
	AverageAnswerMs    int64               `json:"average_answer_ms"`
	AIQuestionsUsed    int                 `json:"ai_questions_used"`
}
