// PrepWise - AI Interview Preparation Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/prepwise/prepwise/internal/api"
	"github.com/prepwise/prepwise/internal/config"
	"github.com/prepwise/prepwise/internal/identity"
	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/llm"
	"github.com/prepwise/prepwise/internal/middleware"
	"github.com/prepwise/prepwise/internal/store"
	"github.com/prepwise/prepwise/internal/voice"
	"github.com/prepwise/prepwise/web"
)

// devSessionSecret signs cookies when SESSION_SECRET is unset in development.
// config.Validate rejects an empty secret outside development.
const devSessionSecret = "prepwise-dev-only-not-a-secret"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		slog.Warn("SESSION_SECRET not set, signing sessions with an insecure development secret")
		sessionSecret = devSessionSecret
	}

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	generator := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	interviews := interview.NewService(repo, generator, logger)

	voiceClient := voice.NewClient(cfg.Vapi.Host, cfg.Vapi.APIKey, cfg.Vapi.AssistantID, cfg.Vapi.WorkflowID, logger)
	voiceSessions := voice.NewSessionManager()

	sessionLog, err := voice.NewSessionLogger(voice.SessionLogConfig{
		Enabled:       cfg.TranscriptLog.Enabled,
		Dir:           cfg.TranscriptLog.Dir,
		GlobalEnabled: cfg.TranscriptLog.GlobalEnabled,
		GlobalPath:    cfg.TranscriptLog.GlobalPath,
		QueueSize:     cfg.TranscriptLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize session logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := sessionLog.Close(); closeErr != nil {
			slog.Error("Failed to close session logger", "error", closeErr)
		}
	}()

	sessions := identity.NewSessions(sessionSecret, cfg.Session.TTL, cfg.IsDevelopment())

	// Initialize handlers.
	baseHandler := api.NewHandler(repo)
	authHandler := api.NewAuthHandler(baseHandler, sessions, api.NewRateLimiter(cfg.RateLimit.Auth, cfg.RateLimit.Window))
	interviewHandler := api.NewInterviewHandler(baseHandler, interviews, api.NewRateLimiter(cfg.RateLimit.Generate, cfg.RateLimit.Window))
	healthHandler := api.NewHealthHandler(repo, voiceSessions)
	wsHandler := voice.NewHandler(repo, voiceClient, interviews, voiceSessions, sessionLog, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(corsOrigin(cfg)))
	r.Use(sessions.Middleware)

	// Routes. Auth requirements are declared per-route by the handlers.
	healthHandler.RegisterHealth(r)
	authHandler.RegisterRoutes(r)
	interviewHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.With(identity.RequireAuth).Get("/ws/voice", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Note: WriteTimeout stays 0 because voice relay sockets are open for
	// the full length of a call.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interview.StartRetentionWorker(ctx, repo, cfg.Retention.Interval, cfg.Retention.MaxAge)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// corsOrigin restricts CORS to the configured frontend when one is set.
// Cookie credentials are only honored for an explicit origin, so the wildcard
// fallback stays safe for same-origin deployments.
func corsOrigin(cfg *config.Config) string {
	if cfg.FrontendURL != "" {
		return cfg.FrontendURL
	}
	return "*"
}
