package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/forgo/cityquest/internal/model"
)

// TemplatePlaceholder is replaced with the location name in fallback templates
const TemplatePlaceholder = "{location}"

// QuestionGenerator produces a question about a location
type QuestionGenerator interface {
	Generate(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error)
}

// QuestionModel is a language model that writes questions
type QuestionModel interface {
	GenerateQuestion(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error)
}

// QuestionGeneratorService asks the language model first and falls back to
// the template bank
type QuestionGeneratorService struct {
	model     QuestionModel
	templates map[model.Difficulty][]string
	intn      func(n int) int
	metrics   Metrics
}

// QuestionGeneratorServiceConfig holds configuration for the generator
type QuestionGeneratorServiceConfig struct {
	Model     QuestionModel // nil disables the model
	Templates map[model.Difficulty][]string
	Intn      func(n int) int
	Metrics   Metrics
}

// NewQuestionGeneratorService creates a new generator
func NewQuestionGeneratorService(cfg QuestionGeneratorServiceConfig) *QuestionGeneratorService {
	intn := cfg.Intn
	if intn == nil {
		intn = rand.IntN
	}
	return &QuestionGeneratorService{
		model:     cfg.Model,
		templates: cfg.Templates,
		intn:      intn,
		metrics:   metricsOrNop(cfg.Metrics),
	}
}

// Generate implements QuestionGenerator
func (s *QuestionGeneratorService) Generate(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error) {
	d = d.Normalize()

	if s.model != nil {
		q, err := s.model.GenerateQuestion(ctx, loc, d)
		if err == nil {
			q.Type = model.QuestionAIGenerated
			q.IsAI = true
			q.Difficulty = d
			q.LocationID = loc.ID
			s.metrics.QuestionGenerated("model")
			return q, nil
		}
		slog.WarnContext(ctx, "question model failed, using templates", "location_id", loc.ID, "error", err)
	}

	bank := s.templates[d]
	if len(bank) == 0 {
		return nil, ErrGeneratorUnavailable
	}

	name := strings.TrimSpace(loc.Name)
	if name == "" {
		name = "локация"
	}
	text := strings.ReplaceAll(bank[s.intn(len(bank))], TemplatePlaceholder, name)

	s.metrics.QuestionGenerated("template")
	return &model.Question{
		Text:       text,
		Type:       model.QuestionAIGenerated,
		IsAI:       true,
		LocationID: loc.ID,
		Difficulty: d,
	}, nil
}
