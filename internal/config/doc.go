// Package config manages application configuration for the City Quest API.
//
// Configuration is read from environment variables. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win.
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, log level)
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: session token signing
//   - TelegramConfig: bot token used to verify Mini-App initData
//   - GameConfig: speed limit, arrival radius and the other quest rules
//   - NotificationConfig: reminder dispatch schedule
//   - AIConfig: question generator endpoint
//
// # Environment Variables
//
//	SERVER_PORT            - HTTP server port (default: 8080)
//	DB_HOST, DB_PORT       - SurrealDB address
//	JWT_SECRET             - HS256 signing secret, at least 32 characters
//	TELEGRAM_BOT_TOKEN     - Bot token for initData verification
//	GAME_SPEED_LIMIT_KMH   - Speed above which a breach is counted (default: 27)
//	GAME_ARRIVAL_RADIUS_M  - Geofence radius in meters (default: 10)
//	REDIS_URL              - Enables the shared idempotency store
package config
