// Package ai talks to an OpenAI-compatible chat-completions endpoint (Grok by
// default) to write trivia questions about quest locations.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/tidwall/gjson"
)

var (
	ErrNoAPIKey        = errors.New("ai: api key not configured")
	ErrUpstream        = errors.New("ai: upstream error")
	ErrInvalidResponse = errors.New("ai: invalid response")
)

// Config holds client configuration
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client generates questions with a chat-completions model
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	model   string
}

// NewClient creates a new client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

const systemPrompt = "Ты составляешь вопросы для городского квеста. " +
	"Отвечай только JSON-объектом вида " +
	`{"text": "...", "options": ["...", "...", "...", "..."], "correct_index": 0}` +
	" без пояснений."

var difficultyNames = map[model.Difficulty]string{
	model.DifficultyEasy:   "лёгкий",
	model.DifficultyMedium: "средний",
	model.DifficultyHard:   "сложный",
}

// BuildPrompt returns the user message for a location and difficulty
func BuildPrompt(loc *model.Location, d model.Difficulty) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Составь %s вопрос с четырьмя вариантами ответа о месте %q", difficultyNames[d.Normalize()], loc.Name)
	if loc.City != "" {
		fmt.Fprintf(&b, " в городе %s", loc.City)
	}
	b.WriteString(".")
	if loc.Description != "" {
		b.WriteString(" Описание места: ")
		b.WriteString(loc.Description)
	}
	return b.String()
}

// GenerateQuestion asks the model for a multiple-choice question
func (c *Client) GenerateQuestion(ctx context.Context, loc *model.Location, d model.Difficulty) (*model.Question, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(loc, d)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	q, err := ParseQuestion(content)
	if err != nil {
		return nil, err
	}
	q.Difficulty = d.Normalize()
	q.LocationID = loc.ID
	return q, nil
}

// ParseQuestion extracts a question from model output. Code fences around
// the JSON are tolerated.
func ParseQuestion(content string) (*model.Question, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if !gjson.Valid(content) {
		return nil, fmt.Errorf("%w: content is not JSON", ErrInvalidResponse)
	}
	parsed := gjson.Parse(content)

	text := strings.TrimSpace(parsed.Get("text").String())
	if text == "" {
		return nil, fmt.Errorf("%w: missing text", ErrInvalidResponse)
	}

	q := &model.Question{
		Text: text,
		Type: model.QuestionAIGenerated,
		IsAI: true,
	}

	for _, opt := range parsed.Get("options").Array() {
		if s := strings.TrimSpace(opt.String()); s != "" {
			q.Options = append(q.Options, s)
		}
	}
	if len(q.Options) == 0 {
		return q, nil
	}

	idx := parsed.Get("correct_index")
	if len(q.Options) < 2 || !idx.Exists() {
		return nil, fmt.Errorf("%w: options without a valid correct_index", ErrInvalidResponse)
	}
	i := int(idx.Int())
	if i < 0 || i >= len(q.Options) {
		return nil, fmt.Errorf("%w: correct_index %d out of range", ErrInvalidResponse, i)
	}
	q.CorrectIndex = &i
	return q, nil
}
