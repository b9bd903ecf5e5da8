// Gauntlet - prompt-injection challenge game server
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

	"github.com/ashureev/gauntlet/internal/api"
	"github.com/ashureev/gauntlet/internal/channel"
	"github.com/ashureev/gauntlet/internal/config"
	"github.com/ashureev/gauntlet/internal/game"
	"github.com/ashureev/gauntlet/internal/identity"
	"github.com/ashureev/gauntlet/internal/level"
	"github.com/ashureev/gauntlet/internal/middleware"
	"github.com/ashureev/gauntlet/internal/reasoner"
	"github.com/ashureev/gauntlet/internal/store"
)

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

	// Initialize dependencies.
	st, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("Failed to close store", "error", closeErr)
		}
	}()

	if err := st.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	levels := level.Default()

	// Reasoner client (optional). Without an endpoint the game runs on
	// the deterministic responder and rule-based win evaluation.
	var rs reasoner.Service
	forceRuleEval := false
	if cfg.Reasoner.URL != "" {
		client, err := reasoner.NewHTTPClient(reasoner.HTTPClientConfig{
			BaseURL:        cfg.Reasoner.URL,
			APIKey:         cfg.Reasoner.APIKey,
			Model:          cfg.Reasoner.Model,
			RequestTimeout: cfg.Reasoner.Timeout,
		}, logger)
		if err != nil {
			slog.Error("Failed to initialize reasoner client", "error", err)
			os.Exit(1)
		}
		rs = client
		slog.Info("Reasoner client initialized", "url", cfg.Reasoner.URL)
	} else {
		rs = reasoner.NewStatic()
		forceRuleEval = true
		slog.Info("No reasoner endpoint configured, using deterministic responder")
	}
	defer rs.Close()

	// Initialize services.
	hub := channel.NewHub()
	svc := game.NewService(st, rs, hub, levels, game.Config{
		SessionTimeout: cfg.SessionTimeout,
		MaxHistory:     cfg.MaxHistory,
		ForceRuleEval:  forceRuleEval,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(st, levels, cfg.FrontendURL)
	gameHandler := api.NewGameHandler(baseHandler, cfg.AdminToken)
	healthHandler := api.NewHealthHandler(st)
	wsHandler := channel.NewWebSocketHandler(hub, svc, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(!cfg.IsDevelopment()))

	// Public routes.
	healthHandler.RegisterHealth(r)
	gameHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Create server.
	// Note: WebSocket connections require no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start the idle-session sweeper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := game.NewSweeper(st, hub, cfg.SessionWarning, cfg.SessionTimeout, cfg.SweepInterval)
	sweeper.Start(ctx)
	slog.Info("Session sweeper started",
		"warn_after", cfg.SessionWarning,
		"timeout", cfg.SessionTimeout,
		"interval", cfg.SweepInterval)

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
