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

	"github.com/starford/devnotes/internal/api"
	"github.com/starford/devnotes/internal/attachments"
	"github.com/starford/devnotes/internal/mcpserver"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/sse"
	"github.com/starford/devnotes/internal/storage"
	"github.com/starford/devnotes/internal/watcher"
	"github.com/starford/devnotes/internal/workspace"
)

// setup applies opts, installs the default logger and opens the workspace.
// The caller owns the returned workspace and must Close it.
func setup(opts []Option) (*application, *slog.Logger, *workspace.Workspace, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("attachments", cfg.Storage.Attachments),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := workspace.Open(cfg.Storage.Driver, cfg.Storage.Path, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open workspace: %w", err)
	}
	logger.Info("Workspace opened",
		slog.Int("notes", ws.Notes.Len()),
		slog.Int("errors", ws.Errors.Len()))
	return app, logger, ws, nil
}

func closeWorkspace(ws *workspace.Workspace, logger *slog.Logger) {
	if err := ws.Close(); err != nil {
		logger.Error("Workspace close failed", slog.String("error", err.Error()))
	}
}

// Run starts the HTTP server with the given options and blocks until a
// shutdown signal arrives or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, ws, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, logger)
	cfg := app.config

	files, err := attachments.NewDir(cfg.Storage.Attachments)
	if err != nil {
		return fmt.Errorf("init attachments: %w", err)
	}

	// SSE broker fed by store observers.
	broker := sse.NewBroker(
		sse.WithCountsThrottle(2*time.Second),
		sse.WithCounts(func() map[string]int {
			return map[string]int{"note": ws.Notes.Len(), "error": ws.Errors.Len()}
		}),
	)
	defer broker.Close()
	ws.Notes.Observe(func(kind string, n models.Note) {
		broker.PublishRecordEvent("note", kind, n.ID)
	})
	ws.Errors.Observe(func(kind string, e models.ErrorLog) {
		broker.PublishRecordEvent("error", kind, e.ID)
	})

	apiRouter := api.NewRouter(ws, files, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := ws.Provider.Keys(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"storage unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	api.MountAttachments(r, files)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(runCtx)

	// Reload stores when their slot files are edited by another process.
	if slots, ok := ws.Provider.(*storage.FS); ok && cfg.Storage.Watch {
		g.Go(func() error {
			return watcher.Watch(gCtx, slots, ws, watcher.DefaultDebounce, logger, func(entity string) {
				logger.Info("Store reloaded from disk", slog.String("entity", entity))
			})
		})
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
		cancel()
		// Ends open event streams; Shutdown would otherwise wait for them.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(_ context.Context, opts ...Option) error {
	app, logger, ws, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, logger)

	files, err := attachments.NewDir(app.config.Storage.Attachments)
	if err != nil {
		return fmt.Errorf("init attachments: %w", err)
	}

	logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(ws, files).ServeStdio(); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}
