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
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/carnet/internal/api"
	"github.com/starford/carnet/internal/appstate"
	"github.com/starford/carnet/internal/editor"
	"github.com/starford/carnet/internal/export"
	"github.com/starford/carnet/internal/markdown"
	"github.com/starford/carnet/internal/mcpserver"
	"github.com/starford/carnet/internal/noteservice"
	"github.com/starford/carnet/internal/resolver"
	"github.com/starford/carnet/internal/sse"
	"github.com/starford/carnet/internal/store"
	"github.com/starford/carnet/internal/watcher"
)

// core is what every command shares: configuration, logger, store and service.
type core struct {
	app    *application
	cfg    *Config
	logger *slog.Logger
	db     *store.DB
	svc    *noteservice.Service
}

func bootstrap(opts []Option) (*core, error) {
	app := &application{version: "dev", logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(store.Driver(cfg.Store.Driver), cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	svc := noteservice.NewService(db, logger, noteservice.WithMaxImageBytes(cfg.Images.MaxBytes))
	return &core{app: app, cfg: cfg, logger: logger, db: db, svc: svc}, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	cfg, logger, svc := c.cfg, c.logger, c.svc

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Image resolution: one fetcher and handle registry shared by every editor session.
	registry := resolver.NewRegistry(cfg.Images.HandlePrefix)
	factory := editor.NewFactory(svc, markdown.New(), resolver.NewFetcher(svc), registry, logger,
		editor.WithDelay(cfg.Editor.AutosaveDelay))

	state := appstate.New(svc, factory, logger,
		appstate.WithPreviewSink(broker.PublishPreview),
		appstate.WithErrorSink(func(err error) {
			broker.Publish(sse.Event{Type: sse.EventError, Data: map[string]string{"error": err.Error()}})
		}),
	)
	defer state.Close()
	unsubscribe := state.Subscribe(func(snap appstate.Snapshot) {
		broker.Publish(sse.Event{Type: sse.EventState, Data: snap})
	})
	defer unsubscribe()

	if err := state.Load(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	// Build API handler and router.
	handler := api.NewHandler(svc, state, logger)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Resolved image handles are embedded in preview HTML as absolute URLs.
	r.Handle(registry.Prefix()+"*", registry)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up writes made by other processes, such as the MCP server.
	if path, ok := sqlitePath(cfg.Store); ok && cfg.Watch.Enabled {
		g.Go(func() error {
			err := watcher.Watch(gCtx, path, cfg.Watch.Delay, logger, func() {
				if err := state.Load(gCtx); err != nil {
					logger.Warn("reload after store change failed", slog.String("error", err.Error()))
					return
				}
				broker.PublishStoreChanged()
			})
			if err != nil {
				logger.Warn("store watcher disabled", slog.String("error", err.Error()))
			}
			return nil
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

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := bootstrap(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	defer c.db.Close()

	if _, err := c.svc.EnsureDefaultNotebook(ctx); err != nil {
		return fmt.Errorf("default notebook: %w", err)
	}

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.svc, c.app.version).ServeStdio()
}

// RunExport writes every notebook below dir and returns.
func RunExport(ctx context.Context, dir string, opts ...Option) error {
	c, err := bootstrap(opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	e, err := export.New(c.svc, dir, c.logger)
	if err != nil {
		return err
	}
	_, err = e.Run(ctx)
	return err
}

// sqlitePath extracts the database file from a SQLite DSN. It reports false
// for other drivers and for in-memory databases.
func sqlitePath(cfg StoreConfig) (string, bool) {
	if store.Driver(cfg.Driver) != store.SQLite {
		return "", false
	}
	path := strings.TrimPrefix(cfg.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return "", false
	}
	return path, true
}
