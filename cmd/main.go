// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/database"
	"github.com/Shivanand-hulikatti/event-participation/internal/handler"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository/memory"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
	"github.com/Shivanand-hulikatti/event-participation/internal/stats"
)

type store interface {
	ports.Store
	handler.Pinger
}

func main() {
	cfg := config.MustLoad()
	log := newLogger(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// ── 1. Storage ────────────────────────────────────────────────────────
	var st store
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, log)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info("connected to PostgreSQL", slog.String("host", cfg.Postgres.Host))
		if err := database.Migrate(ctx, cfg.Postgres); err != nil {
			return err
		}
		st = repository.NewStore(pool, cfg.Postgres.LockTimeout)
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		st = memory.New()
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	// ── 2. Collaborators ──────────────────────────────────────────────────
	opts := []service.Option{
		service.WithRetry(service.RetryPolicy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			Backoff:  cfg.Retry.Backoff,
		}),
	}
	if cfg.RabbitMQ.URL != "" {
		pub, err := notify.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, service.WithNotifier(pub))
	}

	var views ports.ViewCounter = stats.Noop{}
	if cfg.Stats.URL != "" {
		views = stats.NewClient(cfg.Stats.URL, cfg.Stats.App, cfg.Stats.Timeout)
	}

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	eventSvc := service.NewEventService(st, views, log, opts...)
	requestSvc := service.NewRequestService(st, log, opts...)
	router := handler.NewRouter(
		handler.NewEventHandler(eventSvc, log),
		handler.NewRequestHandler(requestSvc, log),
		st,
		log,
	)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}
