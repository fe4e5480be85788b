// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quicknote/internal/api"
	"github.com/starford/quicknote/internal/noteservice"
	"github.com/starford/quicknote/internal/recyclebin"
	"github.com/starford/quicknote/internal/sse"
	"github.com/starford/quicknote/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("recycle_policy", cfg.Recycle.Policy),
		slog.Duration("retention", cfg.Recycle.Retention.Std()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker receives every session event.
	broker := sse.NewBroker(cfg.Events.RefreshThrottle.Std(), logger)
	defer broker.Close()

	session, err := OpenSession(cfg, logger, nil, noteservice.WithNotifier(broker))
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("Session close error", slog.String("error", err.Error()))
		}
	}()

	svc := session.Service
	sweeper := recyclebin.NewSweeper(session.Bin, logger,
		recyclebin.WithInterval(cfg.Recycle.SweepInterval.Std()),
		recyclebin.WithNotify(svc.ReportPurge),
	)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", api.Health)
	r.Get("/health/ready", api.Health)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", session.Layout.Root))
	if !cfg.Auth.AuthEnabled() {
		logger.Warn("Auth disabled; note export over HTTP is refused")
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Report external edits of the notes directory.
	g.Go(func() error {
		err := watch.Watch(gCtx, session.Layout.Active, svc.Store().Patterns().Match, watch.DefaultSettle, logger,
			func(kind watch.Kind, name string) {
				svc.ExternalChange(name, kind == watch.KindRemoved)
			})
		if err != nil {
			logger.Error("Notes watcher unavailable", slog.String("error", err.Error()))
		}
		return nil
	})

	// Purge expired recycle bin entries at startup and then periodically.
	g.Go(func() error {
		return sweeper.Run(gCtx)
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once the server has been shut down, so the
// watcher and sweeper stop with it.
var errShutdown = errors.New("shutdown")
