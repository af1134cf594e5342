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

	"github.com/starford/miding/internal/api"
	"github.com/starford/miding/internal/index"
	"github.com/starford/miding/internal/mcpserver"
	"github.com/starford/miding/internal/noteservice"
	"github.com/starford/miding/internal/notestore"
	"github.com/starford/miding/internal/sse"
	"github.com/starford/miding/internal/stats"
	"github.com/starford/miding/internal/storage"
	"github.com/starford/miding/internal/vcs"
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

	logOutput := app.logOutput
	if logOutput == nil {
		logOutput = os.Stdout
		if app.mcp {
			logOutput = os.Stderr
		}
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_path", cfg.Notes.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Duration("debounce", cfg.Notes.Debounce),
		slog.Bool("git", cfg.Git.Enabled),
		slog.Bool("mcp", app.mcp),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Notes.Path, 0o755); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}

	// Initialize storage.
	fs, err := storage.NewFS(cfg.Notes.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	records := storage.NewNotes(fs, logger)

	storeOpts := []notestore.Option{
		notestore.WithLogger(logger),
		notestore.WithDebounce(cfg.Notes.Debounce),
	}
	var vlog noteservice.VersionLog
	if cfg.Git.Enabled {
		git, err := vcs.Open(ctx, cfg.Notes.Path, cfg.Git.Binary, logger)
		if err != nil {
			return fmt.Errorf("init git: %w", err)
		}
		storeOpts = append(storeOpts, notestore.WithCommitter(git))
		vlog = git
	}

	store := notestore.New(records, storeOpts...)
	defer store.Close() // no-op after a clean shutdown
	if err := store.Load(); err != nil {
		// The store keeps running on whatever it could read.
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	agg := stats.NewAggregator(store, time.Now)
	indexer := index.NewIndexer(db, store, logger)
	store.Subscribe(agg.Observe)
	store.Subscribe(indexer.Observe)

	svc := noteservice.NewService(store, db, agg, vlog)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return indexer.Run(gCtx)
	})

	if cfg.Notes.Watch {
		g.Go(func() error {
			return records.Watch(gCtx, cfg.Notes.Path, logger, func(kind, id string) {
				reloadExternal(store, logger, kind, id)
			})
		})
	}

	if app.mcp {
		g.Go(func() error {
			defer cancel()
			// The last debounced edit must reach the indexer before it stops.
			defer store.Close()
			logger.Info("Serving MCP on stdio")
			return mcpserver.New(svc).ServeStdio()
		})
	} else {
		serveHTTP(gCtx, g, cancel, cfg, svc, store, logger)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// reloadExternal applies a record change made outside the app.
func reloadExternal(store *notestore.Store, logger *slog.Logger, kind, id string) {
	var err error
	switch kind {
	case "deleted":
		err = store.Forget(id)
	default:
		err = store.Reload(id)
	}
	if err != nil {
		logger.Warn("external change not applied",
			slog.String("kind", kind), slog.String("note_id", id), slog.String("error", err.Error()))
		return
	}
	logger.Info("external change applied", slog.String("kind", kind), slog.String("note_id", id))
}

func serveHTTP(gCtx context.Context, g *errgroup.Group, cancel context.CancelFunc, cfg *Config,
	svc *noteservice.Service, store *notestore.Store, logger *slog.Logger) {
	broker := sse.NewBroker(2*time.Second, sse.WithLogger(logger))
	store.Subscribe(broker.Observe)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

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

		// Open SSE streams only end when the broker closes their channels.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Commit the pending edit while the indexer still runs, then stop
		// the indexer and watcher.
		store.Close()
		cancel()

		return nil
	})
}
