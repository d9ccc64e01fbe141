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

	"example.com/finance-tracker/internal/config"
	"example.com/finance-tracker/internal/database"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("server stopped", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	setEnvFile()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")
	}

	events, closeEvents, err := openEvents(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	e, closeSessions := server.New(cfg, logger, db, events)
	defer closeSessions()

	httpServer := server.NewHTTPServer(cfg.Server, e)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", slog.String("addr", httpServer.Addr))
		serveErr <- e.StartServer(httpServer)
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

// openEvents подключает AMQP, если он настроен. Без AMQP_URL события идут только в SSE.
func openEvents(cfg config.EventsConfig, logger *slog.Logger) (notifications.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		return nil, func() {}, nil
	}

	publisher, err := notifications.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to message broker: %w", err)
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close message broker connection", slog.String("error", err.Error()))
		}
	}, nil
}

func setEnvFile() {
	if os.Getenv("ENV_FILE") != "" {
		return
	}

	for _, candidate := range []string{".env", "../.env"} {
		if _, err := os.Stat(candidate); err == nil {
			_ = os.Setenv("ENV_FILE", candidate)
			return
		}
	}
}
