// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/mastermind/internal/api"
	"github.com/starford/mastermind/internal/index"
	"github.com/starford/mastermind/internal/journal"
	"github.com/starford/mastermind/internal/markup"
	"github.com/starford/mastermind/internal/mcpserver"
	"github.com/starford/mastermind/internal/sse"
	"github.com/starford/mastermind/internal/storage"
)

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Journal bundles the opened store, index and service.
type Journal struct {
	Service *journal.Service
	Store   *storage.FS
	DB      *index.DB
}

// Close releases the index database.
func (j *Journal) Close() error {
	return j.DB.Close()
}

// OpenJournal prepares the journal directory, loads the delimiters, opens
// the index and brings it up to date. events may be nil.
func OpenJournal(cfg *Config, events journal.Events, logger *slog.Logger) (*Journal, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	archive := storage.NewArchive(cfg.Vault.Archive())
	store, err := storage.NewFS(cfg.Vault.Path, archive)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	delims := markup.NewFileSource(cfg.Markup.Path, markup.Defaults())
	if err := delims.Load(); err != nil {
		return nil, fmt.Errorf("load delimiters: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := journal.New(journal.Deps{
		Store:      store,
		Archive:    archive,
		DB:         db,
		Delimiters: delims,
		Events:     events,
		Logger:     logger,
	})

	if err := index.Sync(db, store, svc.PatternSource(), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &Journal{Service: svc, Store: store, DB: db}, nil
}

// Run starts the HTTP server and the journal watcher with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := NewLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("journal_path", cfg.Vault.Path),
		slog.String("archive_path", cfg.Vault.Archive()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("markup_path", cfg.Markup.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	j, err := OpenJournal(cfg, broker, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	apiRouter := api.NewRouter(j.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := j.Service.Patterns(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"config not loaded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index in step with edits made outside the API.
	g.Go(func() error {
		err := index.Watch(gCtx, j.DB, j.Store, j.Service.PatternSource(), j.Store.Root(), logger, broker.PublishProjectEvent)
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

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

		// Closing the broker ends open SSE streams so Shutdown does not wait on them.
		broker.Close()

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := NewLogger(app.logOutput, app.config.App.LogLevel)
	slog.SetDefault(logger)

	j, err := OpenJournal(app.config, nil, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	logger.Info("MCP server starting", slog.String("journal_path", app.config.Vault.Path))
	return mcpserver.New(j.Service).ServeStdio()
}
