// Command server runs the CBT companion web app.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HeadupandFace/cbt-companion-app/internal/ai"
	"github.com/HeadupandFace/cbt-companion-app/internal/config"
	"github.com/HeadupandFace/cbt-companion-app/internal/database"
	"github.com/HeadupandFace/cbt-companion-app/internal/handler"
	"github.com/HeadupandFace/cbt-companion-app/internal/identity"
	"github.com/HeadupandFace/cbt-companion-app/internal/middleware"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository"
	"github.com/HeadupandFace/cbt-companion-app/internal/repository/memory"
	"github.com/HeadupandFace/cbt-companion-app/internal/service"
	"github.com/HeadupandFace/cbt-companion-app/internal/speech"
	"github.com/HeadupandFace/cbt-companion-app/internal/worker"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting companion server",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	// Storage. A database that cannot be reached leaves the server running with
	// an unavailable store so crisis detection keeps answering.
	var checks []handler.Check
	store := repository.UnavailableStore()
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewStore()
		logger.Warn("Using in-memory store; data is lost on restart")
	default:
		db, err := connectPostgres(cfg.Database, logger)
		if err != nil {
			logger.Error("Database unavailable, continuing without storage", slog.String("error", err.Error()))
			break
		}
		defer db.Close()
		store = repository.NewStore(db.Pool())
		checks = append(checks, handler.Check{Name: "database", Ping: db.Ping})
	}

	var apiMiddleware []handler.Middleware
	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting disabled", slog.String("error", err.Error()))
	} else {
		defer redis.Close()
		logger.Info("Connected to Redis")
		checks = append(checks, handler.Check{Name: "redis", Ping: redis.Ping})
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(redis, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
		}, handler.RateLimitKey, logger))
	}

	// Outbound clients
	httpClient := &http.Client{Timeout: 60 * time.Second}

	completer, err := ai.New(context.Background(), cfg.AI, httpClient)
	if err != nil {
		log.Fatalf("Failed to configure AI provider: %v", err)
	}
	if _, ok := completer.(ai.Unavailable); ok {
		logger.Warn("No AI API key configured; chat replies are disabled")
	}

	synthesizer, err := speech.New(context.Background(), cfg.Speech)
	if err != nil {
		logger.Warn("Speech synthesis unavailable, replies will be text only", slog.String("error", err.Error()))
		synthesizer = speech.Disabled{}
	}

	verifier := identity.New(cfg.Auth, httpClient)
	if _, ok := verifier.(identity.Unavailable); ok {
		logger.Warn("No identity project configured; registration and login are disabled")
	}

	// Background writes
	pool := worker.New(cfg.Worker.PoolSize, cfg.Worker.QueueSize, logger)

	// Services
	safetySvc := service.NewSafetyService(store.Safety, pool, logger)
	conversations := service.NewConversationService(store, pool)
	diary := service.NewDiaryService(store)
	services := handler.Services{
		Auth:          service.NewAuthService(verifier, store, pool, cfg.Auth.AllowedEmails(), logger),
		Users:         service.NewUserService(store, safetySvc, pool, logger),
		Diary:         diary,
		Conversations: conversations,
		Chat:          service.NewChatService(store, conversations, diary, safetySvc, completer, synthesizer, logger),
	}

	sessions, err := handler.NewSessions(cfg.Session, cfg.Server.Environment == "prod")
	if err != nil {
		log.Fatalf("Failed to configure sessions: %v", err)
	}
	h := handler.New(services, sessions, logger)

	// Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(nil))
	r.Use(middleware.Compress())

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready(checks...))
	r.Handle("/metrics", promhttp.Handler())

	fileServer := http.FileServer(http.Dir("static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Mount("/", h.Routes(apiMiddleware...))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	// Pending profile and history writes finish before the store closes.
	if err := pool.Close(ctx); err != nil {
		logger.Error("Background writes did not drain", slog.String("error", err.Error()))
	}

	if closer, ok := synthesizer.(io.Closer); ok {
		closer.Close()
	}

	logger.Info("Server stopped gracefully")
}

func connectPostgres(cfg config.DatabaseConfig, logger *slog.Logger) (*database.Postgres, error) {
	db, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to PostgreSQL")

	if err := database.RunMigrations(cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed")
	return db, nil
}
