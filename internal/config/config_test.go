package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func validBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			AllowedOrigins: []string{"https://web.telegram.org"},
		},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "cityquest",
			Database:  "main",
		},
		JWT: JWTConfig{
			Secret:         "0123456789abcdef0123456789abcdef",
			ExpirationMins: 60,
			Issuer:         "cityquest.forgo.software",
		},
		Telegram: TelegramConfig{
			BotToken:       "123456:ABC",
			InitDataMaxAge: 24 * time.Hour,
		},
		Game: GameConfig{
			SpeedLimitKmh:      27,
			MaxViolations:      3,
			ArrivalRadiusM:     10,
			ArrivalDelay:       1500 * time.Millisecond,
			ManualArrivalDelay: time.Second,
			SampleHistory:      10,
		},
		Notifications: NotificationConfig{
			Enabled:     true,
			Schedule:    "@every 1m",
			BatchSize:   100,
			MaxAttempts: 3,
		},
		Payments:  PaymentConfig{Currency: "RUB", Method: "telegram_payments"},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 20},
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	if err := validBaseConfig().Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestConfig_Validate_InvalidServerEnv(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "invalid"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid SERVER_ENV")
	}
	if !strings.Contains(err.Error(), "SERVER_ENV") {
		t.Errorf("expected error to mention SERVER_ENV, got: %v", err)
	}
}

func TestConfig_Validate_ShortJWTSecret(t *testing.T) {
	cfg := validBaseConfig()
	cfg.JWT.Secret = "short"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for short JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("expected error to mention JWT_SECRET, got: %v", err)
	}
}

func TestConfig_Validate_MissingBotToken(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Telegram.BotToken = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing TELEGRAM_BOT_TOKEN")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
		t.Errorf("expected error to mention TELEGRAM_BOT_TOKEN, got: %v", err)
	}
}

func TestConfig_Validate_SkipVerifyAllowsMissingTokenInDevelopment(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Telegram.BotToken = ""
	cfg.Telegram.SkipVerifyInDev = true

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error in development with skip verify, got: %v", err)
	}
}

func TestConfig_Validate_SkipVerifyRejectedInProduction(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "production"
	cfg.Admin.PasswordHash = "$2a$10$hash"
	cfg.Telegram.SkipVerifyInDev = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for skip verify in production")
	}
	if !strings.Contains(err.Error(), "TELEGRAM_SKIP_VERIFY") {
		t.Errorf("expected error to mention TELEGRAM_SKIP_VERIFY, got: %v", err)
	}
}

func TestConfig_Validate_ProductionRequiresAdminHash(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Server.Env = "production"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing admin hash in production")
	}
	if !strings.Contains(err.Error(), "ADMIN_PASSWORD_HASH") {
		t.Errorf("expected error to mention ADMIN_PASSWORD_HASH, got: %v", err)
	}
}

func TestConfig_Validate_NotificationsEnabledRequiresSchedule(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Notifications.Schedule = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when notifications enabled without schedule")
	}
	if !strings.Contains(err.Error(), "NOTIFICATIONS_SCHEDULE") {
		t.Errorf("expected error to mention NOTIFICATIONS_SCHEDULE, got: %v", err)
	}
}

func TestConfig_Validate_NotificationsDisabledNoScheduleRequired(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Notifications.Enabled = false
	cfg.Notifications.Schedule = ""

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error when notifications disabled, got: %v", err)
	}
}

func TestGameConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameConfig)
		field  string
	}{
		{"zero speed limit", func(g *GameConfig) { g.SpeedLimitKmh = 0 }, "GAME_SPEED_LIMIT_KMH"},
		{"zero violations", func(g *GameConfig) { g.MaxViolations = 0 }, "GAME_MAX_VIOLATIONS"},
		{"negative radius", func(g *GameConfig) { g.ArrivalRadiusM = -1 }, "GAME_ARRIVAL_RADIUS_M"},
		{"negative delay", func(g *GameConfig) { g.ArrivalDelay = -time.Second }, "GAME_ARRIVAL_DELAY"},
		{"history too short", func(g *GameConfig) { g.SampleHistory = 1 }, "GAME_SAMPLE_HISTORY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validBaseConfig().Game
			tt.mutate(&g)

			err := g.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           "",
			Env:            "invalid",
			AllowedOrigins: []string{},
		},
		Database: DatabaseConfig{
			Host: "",
		},
		JWT: JWTConfig{
			ExpirationMins: 0,
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}

	errStr := err.Error()
	expectedFields := []string{"SERVER_PORT", "SERVER_ENV", "CORS_ALLOWED_ORIGINS", "DB_HOST", "JWT_EXPIRATION_MINS", "TELEGRAM_BOT_TOKEN", "invalid game rules", "RATE_LIMIT_RPS"}
	for _, field := range expectedFields {
		if !strings.Contains(errStr, field) {
			t.Errorf("expected error to mention %s, got: %v", field, err)
		}
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "development"}}
	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return true")
	}

	cfg.Server.Env = "production"
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false in production")
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{Server: ServerConfig{LogLevel: tt.in}}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad_ReadsGameRulesFromEnv(t *testing.T) {
	t.Setenv("GAME_SPEED_LIMIT_KMH", "30.5")
	t.Setenv("GAME_MAX_VIOLATIONS", "5")
	t.Setenv("GAME_ARRIVAL_DELAY", "2s")
	t.Setenv("GAME_ALLOW_MANUAL_ARRIVAL", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Game.SpeedLimitKmh != 30.5 {
		t.Errorf("expected speed limit 30.5, got %v", cfg.Game.SpeedLimitKmh)
	}
	if cfg.Game.MaxViolations != 5 {
		t.Errorf("expected 5 violations, got %d", cfg.Game.MaxViolations)
	}
	if cfg.Game.ArrivalDelay != 2*time.Second {
		t.Errorf("expected 2s delay, got %v", cfg.Game.ArrivalDelay)
	}
	if !cfg.Game.AllowManualArrival {
		t.Error("expected manual arrival enabled")
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GAME_ARRIVAL_RADIUS_M", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Game.ArrivalRadiusM != 10 {
		t.Errorf("expected fallback radius 10, got %v", cfg.Game.ArrivalRadiusM)
	}
	if cfg.Payments.Currency != "RUB" {
		t.Errorf("expected RUB, got %q", cfg.Payments.Currency)
	}
	if cfg.Notifications.Schedule != "@every 1m" {
		t.Errorf("expected default schedule, got %q", cfg.Notifications.Schedule)
	}
}
