package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Telegram      TelegramConfig
	Admin         AdminConfig
	Game          GameConfig
	Notifications NotificationConfig
	AI            AIConfig
	Payments      PaymentConfig
	RateLimit     RateLimitConfig
	Redis         RedisConfig
	Seed          SeedConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	LogLevel       string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// JWTConfig holds session token signing settings
type JWTConfig struct {
	Secret         string
	ExpirationMins int
	Issuer         string
}

// TelegramConfig holds Mini-App and Bot API settings
type TelegramConfig struct {
	BotToken        string
	InitDataMaxAge  time.Duration
	APIBaseURL      string
	SkipVerifyInDev bool
}

// AdminConfig holds the single admin account
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// GameConfig holds the quest rules
type GameConfig struct {
	SpeedLimitKmh      float64
	MaxViolations      int
	ArrivalRadiusM     float64
	ArrivalDelay       time.Duration
	ManualArrivalDelay time.Duration
	SampleHistory      int
	AllowManualArrival bool
	DefaultStartOffset time.Duration
}

// NotificationConfig holds reminder dispatch settings
type NotificationConfig struct {
	Enabled     bool
	Schedule    string
	BatchSize   int
	MaxAttempts int
}

// AIConfig holds the question generator settings
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PaymentConfig holds payment defaults
type PaymentConfig struct {
	Currency string
	Method   string
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RedisConfig holds the optional shared cache
type RedisConfig struct {
	URL string
}

// SeedConfig holds catalog seeding settings
type SeedConfig struct {
	OnStart     bool
	CatalogPath string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"https://web.telegram.org"}),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "cityquest"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			ExpirationMins: getIntEnv("JWT_EXPIRATION_MINS", 24*60),
			Issuer:         getEnv("JWT_ISSUER", "cityquest.forgo.software"),
		},
		Telegram: TelegramConfig{
			BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
			InitDataMaxAge:  getDurationEnv("TELEGRAM_INIT_DATA_MAX_AGE", 24*time.Hour),
			APIBaseURL:      getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			SkipVerifyInDev: getBoolEnv("TELEGRAM_SKIP_VERIFY", false),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Game: GameConfig{
			SpeedLimitKmh:      getFloatEnv("GAME_SPEED_LIMIT_KMH", 27),
			MaxViolations:      getIntEnv("GAME_MAX_VIOLATIONS", 3),
			ArrivalRadiusM:     getFloatEnv("GAME_ARRIVAL_RADIUS_M", 10),
			ArrivalDelay:       getDurationEnv("GAME_ARRIVAL_DELAY", 1500*time.Millisecond),
			ManualArrivalDelay: getDurationEnv("GAME_MANUAL_ARRIVAL_DELAY", time.Second),
			SampleHistory:      getIntEnv("GAME_SAMPLE_HISTORY", 10),
			AllowManualArrival: getBoolEnv("GAME_ALLOW_MANUAL_ARRIVAL", false),
			DefaultStartOffset: getDurationEnv("GAME_DEFAULT_START_OFFSET", 24*time.Hour),
		},
		Notifications: NotificationConfig{
			Enabled:     getBoolEnv("NOTIFICATIONS_ENABLED", true),
			Schedule:    getEnv("NOTIFICATIONS_SCHEDULE", "@every 1m"),
			BatchSize:   getIntEnv("NOTIFICATIONS_BATCH_SIZE", 100),
			MaxAttempts: getIntEnv("NOTIFICATIONS_MAX_ATTEMPTS", 3),
		},
		AI: AIConfig{
			APIKey:  getEnv("AI_API_KEY", ""),
			BaseURL: getEnv("AI_BASE_URL", "https://api.x.ai/v1"),
			Model:   getEnv("AI_MODEL", "grok-beta"),
			Timeout: getDurationEnv("AI_TIMEOUT", 20*time.Second),
		},
		Payments: PaymentConfig{
			Currency: getEnv("PAYMENT_CURRENCY", "RUB"),
			Method:   getEnv("PAYMENT_METHOD", "telegram_payments"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatEnv("RATE_LIMIT_RPS", 5),
			Burst: getIntEnv("RATE_LIMIT_BURST", 20),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Seed: SeedConfig{
			OnStart:     getBoolEnv("SEED_ON_START", false),
			CatalogPath: getEnv("CATALOG_PATH", ""),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// JWT validation
	if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	// Telegram validation - the bot token signs initData
	if c.Telegram.BotToken == "" && !(c.IsDevelopment() && c.Telegram.SkipVerifyInDev) {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.Telegram.SkipVerifyInDev && c.IsProduction() {
		errs = append(errs, errors.New("TELEGRAM_SKIP_VERIFY cannot be enabled in production"))
	}
	if c.Telegram.InitDataMaxAge <= 0 {
		errs = append(errs, errors.New("TELEGRAM_INIT_DATA_MAX_AGE must be positive"))
	}

	if c.IsProduction() && c.Admin.PasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required in production"))
	}

	if err := c.Game.Validate(); err != nil {
		errs = append(errs, err)
	}

	// Notification validation
	if c.Notifications.Enabled && c.Notifications.Schedule == "" {
		errs = append(errs, errors.New("NOTIFICATIONS_SCHEDULE is required when NOTIFICATIONS_ENABLED is true"))
	}
	if c.Notifications.BatchSize <= 0 {
		errs = append(errs, errors.New("NOTIFICATIONS_BATCH_SIZE must be positive"))
	}
	if c.Notifications.MaxAttempts <= 0 {
		errs = append(errs, errors.New("NOTIFICATIONS_MAX_ATTEMPTS must be positive"))
	}

	if c.AI.APIKey != "" && c.AI.BaseURL == "" {
		errs = append(errs, errors.New("AI_BASE_URL is required when AI_API_KEY is set"))
	}

	if c.Payments.Currency == "" {
		errs = append(errs, errors.New("PAYMENT_CURRENCY is required"))
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the quest rules
func (g GameConfig) Validate() error {
	var invalid []string
	if g.SpeedLimitKmh <= 0 {
		invalid = append(invalid, "GAME_SPEED_LIMIT_KMH")
	}
	if g.MaxViolations <= 0 {
		invalid = append(invalid, "GAME_MAX_VIOLATIONS")
	}
	if g.ArrivalRadiusM <= 0 {
		invalid = append(invalid, "GAME_ARRIVAL_RADIUS_M")
	}
	if g.ArrivalDelay < 0 || g.ManualArrivalDelay < 0 {
		invalid = append(invalid, "GAME_ARRIVAL_DELAY")
	}
	if g.SampleHistory < 2 {
		invalid = append(invalid, "GAME_SAMPLE_HISTORY")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid game rules: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
