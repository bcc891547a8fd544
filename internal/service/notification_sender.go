package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/forgo/cityquest/internal/model"
	"github.com/tidwall/gjson"
)

var errSenderRejected = errors.New("message rejected")

// TelegramSender posts notifications to the player's chat through the Bot API
type TelegramSender struct {
	client   *http.Client
	baseURL  string
	botToken string
}

// TelegramSenderConfig holds configuration for the Telegram sender
type TelegramSenderConfig struct {
	BaseURL  string
	BotToken string
	Client   *http.Client
}

// NewTelegramSender creates a Bot API sender
func NewTelegramSender(cfg TelegramSenderConfig) *TelegramSender {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TelegramSender{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		botToken: cfg.BotToken,
	}
}

// Send implements Sender
func (s *TelegramSender) Send(ctx context.Context, u *model.User, n *model.Notification) error {
	if u.TelegramID == "" {
		return ErrTelegramIDRequired
	}

	body, err := json.Marshal(map[string]string{
		"chat_id": u.TelegramID,
		"text":    RenderText(n),
	})
	if err != nil {
		return err
	}

	url := s.baseURL + "/bot" + s.botToken + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	result := gjson.ParseBytes(raw)
	if resp.StatusCode != http.StatusOK || !result.Get("ok").Bool() {
		desc := result.Get("description").String()
		if desc == "" {
			desc = resp.Status
		}
		return fmt.Errorf("%w by telegram: %s", errSenderRejected, desc)
	}
	return nil
}

// LogSender writes notifications to the log. Used for the SMS and email
// channels, which have no provider integration.
type LogSender struct {
	Channel model.Channel
}

// Send implements Sender
func (s LogSender) Send(ctx context.Context, u *model.User, n *model.Notification) error {
	attrs := []any{
		"channel", s.Channel,
		"notification_id", n.ID,
		"type", n.Type,
		"user_id", u.ID,
		"title", n.Content.Title,
	}
	switch s.Channel {
	case model.ChannelSMS:
		if u.Phone == "" {
			return fmt.Errorf("%w: no phone number", errSenderRejected)
		}
		attrs = append(attrs, "phone", u.Phone)
	case model.ChannelEmail:
		if u.Email == "" {
			// email is optional at registration
			slog.DebugContext(ctx, "notification skipped, no email", attrs...)
			return nil
		}
		attrs = append(attrs, "email", u.Email)
	}
	slog.InfoContext(ctx, "notification delivered", attrs...)
	return nil
}
