package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/cityquest/internal/ai"
	"github.com/forgo/cityquest/internal/catalog"
	"github.com/forgo/cityquest/internal/config"
	"github.com/forgo/cityquest/internal/database"
	"github.com/forgo/cityquest/internal/handler"
	"github.com/forgo/cityquest/internal/jobs"
	"github.com/forgo/cityquest/internal/metrics"
	"github.com/forgo/cityquest/internal/middleware"
	"github.com/forgo/cityquest/internal/model"
	"github.com/forgo/cityquest/internal/repository"
	"github.com/forgo/cityquest/internal/service"
	"github.com/forgo/cityquest/pkg/jwt"
)

func main() {
	// Initialize structured logging; the level is raised or lowered once
	// the configuration is loaded
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level.Set(cfg.SlogLevel())

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	questCatalog, err := catalog.Load(cfg.Seed.CatalogPath)
	if err != nil {
		slog.Error("failed to load quest catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recorder := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	cityRepo := repository.NewCityRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	questRepo := repository.NewQuestRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:          userRepo,
		Tokens:         jwtService,
		BotToken:       cfg.Telegram.BotToken,
		InitDataMaxAge: cfg.Telegram.InitDataMaxAge,
		SkipVerify:     cfg.IsDevelopment() && cfg.Telegram.SkipVerifyInDev,
		AdminUsername:  cfg.Admin.Username,
		AdminHash:      cfg.Admin.PasswordHash,
	})

	geoService := service.NewGeoService()

	userService := service.NewUserService(service.UserServiceConfig{
		Users:      userRepo,
		Cities:     cityRepo,
		Agreements: agreementRepo,
		Geo:        geoService,
	})

	cityService := service.NewCityService(service.CityServiceConfig{Repo: cityRepo})
	agreementService := service.NewAgreementService(service.AgreementServiceConfig{Repo: agreementRepo})

	locationService := service.NewLocationService(service.LocationServiceConfig{
		Repo:      locationRepo,
		Questions: questionRepo,
	})

	questService := service.NewQuestService(service.QuestServiceConfig{
		Repo:      questRepo,
		Locations: locationRepo,
		Questions: questionRepo,
	})

	// The language model is optional; without a key questions come from
	// the template bank only
	var questionModel service.QuestionModel
	if cfg.AI.APIKey != "" {
		questionModel = ai.NewClient(ai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: cfg.AI.Timeout,
		})
	} else {
		slog.Warn("AI_API_KEY not set, question generation uses templates only")
	}

	generator := service.NewQuestionGeneratorService(service.QuestionGeneratorServiceConfig{
		Model:     questionModel,
		Templates: questCatalog.QuestionTemplates(),
		Metrics:   recorder,
	})

	questionService := service.NewQuestionService(service.QuestionServiceConfig{
		Repo:      questionRepo,
		Locations: locationRepo,
		Generator: generator,
	})

	notificationService := service.NewNotificationService(service.NotificationServiceConfig{
		Repo:  notificationRepo,
		Users: userRepo,
		Senders: map[model.Channel]service.Sender{
			model.ChannelTelegram: service.NewTelegramSender(service.TelegramSenderConfig{
				BaseURL:  cfg.Telegram.APIBaseURL,
				BotToken: cfg.Telegram.BotToken,
			}),
			model.ChannelSMS:   service.LogSender{Channel: model.ChannelSMS},
			model.ChannelEmail: service.LogSender{Channel: model.ChannelEmail},
		},
		BatchSize:   cfg.Notifications.BatchSize,
		MaxAttempts: cfg.Notifications.MaxAttempts,
		Metrics:     recorder,
	})

	paymentService := service.NewPaymentService(service.PaymentServiceConfig{
		Repo:     paymentRepo,
		Quests:   questRepo,
		Users:    userRepo,
		Gateway:  service.SimulatedGateway{},
		Notifier: notificationService,
		Metrics:  recorder,
		Currency: cfg.Payments.Currency,
		Method:   model.PaymentMethod(cfg.Payments.Method),
	})

	participationService := service.NewParticipationService(service.ParticipationServiceConfig{
		Repo:               participationRepo,
		Quests:             questRepo,
		Users:              userRepo,
		Payments:           paymentRepo,
		Agreements:         agreementRepo,
		Reminders:          notificationService,
		DefaultStartOffset: cfg.Game.DefaultStartOffset,
	})

	eventHub := service.NewEventHub()

	gameService := service.NewGameService(service.GameServiceConfig{
		Participations: participationRepo,
		Quests:         questRepo,
		Users:          userRepo,
		Progression: service.NewProgression(service.GameRules{
			SpeedLimitKmh:      cfg.Game.SpeedLimitKmh,
			MaxViolations:      cfg.Game.MaxViolations,
			ArrivalRadiusM:     cfg.Game.ArrivalRadiusM,
			ArrivalDelay:       cfg.Game.ArrivalDelay,
			ManualArrivalDelay: cfg.Game.ManualArrivalDelay,
			SampleHistory:      cfg.Game.SampleHistory,
			AllowManualArrival: cfg.Game.AllowManualArrival,
		}, geoService),
		Generator: generator,
		Notifier:  notificationService,
		Hub:       eventHub,
		Metrics:   recorder,
	})

	statisticsService := service.NewStatisticsService(service.StatisticsServiceConfig{
		Participations: participationRepo,
		Quests:         questRepo,
	})

	seederService := service.NewSeederService(service.SeederServiceConfig{
		Catalog:    questCatalog,
		Cities:     cityRepo,
		Locations:  locationRepo,
		Questions:  questionRepo,
		Quests:     questRepo,
		Agreements: agreementRepo,
	})

	if cfg.Seed.OnStart {
		result, err := seederService.Seed(ctx)
		if err != nil {
			slog.Error("failed to seed catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("catalog seeded",
			slog.Int("cities", result.Cities),
			slog.Int("locations", result.Locations),
			slog.Int("questions", result.Questions),
			slog.Int("quests", result.Quests),
			slog.Int("agreements", result.Agreements),
		)
	}

	// Initialize background jobs. The dispatcher also serves manual admin
	// runs, so it exists even when the schedule is off.
	dispatcher, err := jobs.NewNotificationDispatcher(notificationService, cfg.Notifications.Schedule)
	if err != nil {
		slog.Error("invalid notification schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Notifications.Enabled {
		dispatcher.Start()
	}

	// Idempotency keys live in Redis when it is configured so that retries
	// hitting another instance are still recognized
	var (
		idempotencyStore middleware.IdempotencyStore
		closeStore       func()
	)
	if cfg.Redis.URL != "" {
		redisStore, err := middleware.NewRedisIdempotencyStore(ctx, middleware.RedisIdempotencyConfig{
			URL: cfg.Redis.URL,
			TTL: 24 * time.Hour,
		})
		if err != nil {
			slog.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		idempotencyStore = redisStore
		closeStore = func() { _ = redisStore.Close() }
	} else {
		memoryStore := middleware.NewMemoryIdempotencyStore(middleware.IdempotencyConfig{TTL: 24 * time.Hour})
		idempotencyStore = memoryStore
		closeStore = memoryStore.Stop
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	})

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, authService)
	catalogHandler := handler.NewCatalogHandler(questService, cityService, agreementService)
	gameHandler := handler.NewGameHandler(paymentService, participationService, gameService)
	streamHandler := handler.NewStreamHandler(eventHub, gameService, recorder, cfg.Server.AllowedOrigins)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{"database": db})
	adminHandler := handler.NewAdminHandler(handler.AdminHandlerConfig{
		Users:          userService,
		Quests:         questService,
		Locations:      locationService,
		Questions:      questionService,
		Cities:         cityService,
		Agreements:     agreementService,
		Payments:       paymentService,
		Participations: participationService,
		Notifications:  notificationService,
		Dispatcher:     dispatcher,
		Statistics:     statisticsService,
		Seeder:         seederService,
	})

	// Route middleware: any valid token may register, the rest of the
	// player surface needs a registered account
	authenticated := middleware.Auth(jwtService)
	player := func(next http.Handler) http.Handler {
		return middleware.Chain(next, authenticated, middleware.RequireUser)
	}
	admin := func(next http.Handler) http.Handler {
		return middleware.Chain(next, authenticated, middleware.RequireAdmin)
	}
	idempotent := middleware.Idempotency(idempotencyStore)

	// Setup routes
	mux := http.NewServeMux()

	// Health check and metrics (no auth required)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", recorder.Handler())

	authHandler.RegisterRoutes(mux)
	catalogHandler.RegisterRoutes(mux)
	userHandler.RegisterRoutes(mux, authenticated, player)
	gameHandler.RegisterRoutes(mux, player, idempotent)
	streamHandler.RegisterRoutes(mux, player)
	adminHandler.RegisterRoutes(mux, admin)

	// Apply global middleware
	wrapped := middleware.Chain(
		recorder.Instrument(mux),
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
		middleware.RateLimit(rateLimiter),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	dispatcher.Stop()
	// Closing the hub ends live streams so Shutdown does not wait on them
	eventHub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	rateLimiter.Stop()
	closeStore()

	slog.Info("server exited")
}
