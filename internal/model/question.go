package model

import (
	"strconv"
	"strings"
	"time"
)

// QuestionType is how a question is answered
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionOpenText       QuestionType = "open_text"
	QuestionAIGenerated    QuestionType = "ai_generated"
)

// Difficulty drives the base points of a question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Normalize maps unknown or empty difficulties to medium
func (d Difficulty) Normalize() Difficulty {
	switch d {
	case DifficultyEasy, DifficultyHard:
		return d
	}
	return DifficultyMedium
}

// BasePoints is the score for a correct answer before the time bonus
func (d Difficulty) BasePoints() int {
	switch d.Normalize() {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 20
	}
	return 30
}

// Question is a trivia question attached to a location
type Question struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Type         QuestionType `json:"type"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex *int         `json:"correct_index,omitempty"`
	CorrectText  string       `json:"correct_text,omitempty"`
	IsAI         bool         `json:"is_ai"`
	LocationID   string       `json:"location_id"`
	Difficulty   Difficulty   `json:"difficulty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AnswerInput is what a player submits. Choice questions use OptionIndex,
// open questions use Text.
type AnswerInput struct {
	OptionIndex *int   `json:"option_index,omitempty"`
	Text        string `json:"text,omitempty"`
}

// IsEmpty reports whether nothing was submitted
func (a AnswerInput) IsEmpty() bool {
	return a.OptionIndex == nil && strings.TrimSpace(a.Text) == ""
}

// Check grades the answer and returns the text recorded for it. An option
// index sent for a question without options is ignored.
func (q *Question) Check(a AnswerInput) (correct bool, recorded string) {
	recorded = strings.TrimSpace(a.Text)
	if a.OptionIndex != nil && len(q.Options) > 0 {
		idx := *a.OptionIndex
		if idx >= 0 && idx < len(q.Options) {
			recorded = q.Options[idx]
		} else {
			recorded = strconv.Itoa(idx)
		}
	}

	switch {
	case len(q.Options) > 0:
		return a.OptionIndex != nil && q.CorrectIndex != nil && *a.OptionIndex == *q.CorrectIndex, recorded
	case q.Type == QuestionAIGenerated:
		return recorded != "", recorded
	default:
		return q.CorrectText != "" && strings.EqualFold(recorded, strings.TrimSpace(q.CorrectText)), recorded
	}
}

// PublicQuestion is a question as shown to a player
type PublicQuestion struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	IsAI       bool         `json:"is_ai"`
	LocationID string       `json:"location_id"`
	Difficulty Difficulty   `json:"difficulty"`
}

// ToPublic hides the correct answer
func (q *Question) ToPublic() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Options:    q.Options,
		IsAI:       q.IsAI,
		LocationID: q.LocationID,
		Difficulty: q.Difficulty.Normalize(),
	}
}

// QuestionRequest creates or replaces a question
type QuestionRequest struct {
	Text         string       `json:"text"`
	Type         QuestionType `json:"type"`
	Options      []string     `json:"options,omitempty"`
	CorrectIndex *int         `json:"correct_index,omitempty"`
	CorrectText  string       `json:"correct_text,omitempty"`
	Difficulty   Difficulty   `json:"difficulty,omitempty"`
}

// Validate validates the question form
func (r *QuestionRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Text) == "" {
		errors = append(errors, FieldError{Field: "text", Message: "text is required"})
	}
	if r.Difficulty != "" && r.Difficulty.Normalize() != r.Difficulty {
		errors = append(errors, FieldError{Field: "difficulty", Message: "difficulty must be easy, medium, or hard"})
	}

	switch r.Type {
	case QuestionMultipleChoice:
		if len(r.Options) < 2 {
			errors = append(errors, FieldError{Field: "options", Message: "multiple_choice needs at least 2 options"})
		}
		if r.CorrectIndex == nil || *r.CorrectIndex < 0 || *r.CorrectIndex >= len(r.Options) {
			errors = append(errors, FieldError{Field: "correct_index", Message: "correct_index must point at one of the options"})
		}
	case QuestionOpenText:
		if strings.TrimSpace(r.CorrectText) == "" {
			errors = append(errors, FieldError{Field: "correct_text", Message: "correct_text is required for open_text"})
		}
	case QuestionAIGenerated:
		if len(r.Options) > 0 && (r.CorrectIndex == nil || *r.CorrectIndex < 0 || *r.CorrectIndex >= len(r.Options)) {
			errors = append(errors, FieldError{Field: "correct_index", Message: "correct_index must point at one of the options"})
		}
	default:
		errors = append(errors, FieldError{Field: "type", Message: "type must be multiple_choice, open_text, or ai_generated"})
	}

	return errors
}

// Apply copies the form onto a question
func (r *QuestionRequest) Apply(q *Question) {
	q.Text = strings.TrimSpace(r.Text)
	q.Type = r.Type
	q.Options = r.Options
	q.CorrectIndex = r.CorrectIndex
	q.CorrectText = strings.TrimSpace(r.CorrectText)
	q.Difficulty = r.Difficulty.Normalize()
	q.IsAI = r.Type == QuestionAIGenerated
}
