package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mailgate/mailgate/internal/approval"
	"github.com/mailgate/mailgate/internal/config"
	"github.com/mailgate/mailgate/internal/database"
	"github.com/mailgate/mailgate/internal/gmail"
	"github.com/mailgate/mailgate/internal/server"
	"github.com/mailgate/mailgate/internal/session"
	"github.com/mailgate/mailgate/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting mailgate")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	notifier := telegram.New(cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret, logger)
	gmailClient := gmail.NewClient(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRedirectURI, logger)
	machine := approval.New(db, notifier, gmailClient, cfg.SendTimeout, logger)

	sessions := session.NewStore(cfg.SessionTTL)
	sessions.Start(time.Minute)
	defer sessions.Stop()

	// Re-register Telegram webhooks for existing users. Failure here is not
	// fatal; the server starts and callbacks for affected users resume once
	// their bot is re-registered.
	if users, err := db.GetAllUsers(ctx); err != nil {
		logger.Error("failed to load users for webhook registration", "error", err)
	} else {
		notifier.RegisterAllWebhooks(ctx, users)
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		DB:       db,
		Notifier: notifier,
		Gmail:    gmailClient,
		Machine:  machine,
		Sessions: sessions,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Daily sweep of resolved requests past retention
	go retentionSweep(ctx, db, cfg.RequestRetention, logger)

	go func() {
		<-ctx.Done()
		logger.Info("received shutdown signal, shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down cleanly", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// retentionSweep deletes resolved requests older than the retention window,
// once shortly after startup and then daily.
func retentionSweep(ctx context.Context, db *database.DB, retention time.Duration, logger *slog.Logger) {
	run := func() {
		deleted, err := db.DeleteResolvedBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Error("retention sweep failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Info("retention sweep deleted old requests", "count", deleted)
		}
	}

	select {
	case <-time.After(5 * time.Second):
		run()
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
