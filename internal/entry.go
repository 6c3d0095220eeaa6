// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hours/internal/api"
	"github.com/starford/hours/internal/apperr"
	"github.com/starford/hours/internal/catalog"
	"github.com/starford/hours/internal/graph"
	"github.com/starford/hours/internal/mcpserver"
	"github.com/starford/hours/internal/metrics"
	"github.com/starford/hours/internal/models"
	"github.com/starford/hours/internal/progress"
	"github.com/starford/hours/internal/sse"
	"github.com/starford/hours/internal/storage"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// backend is the storage stack every command shares.
type backend struct {
	store    *storage.FS
	db       *catalog.DB
	holder   *catalog.Holder
	progress *progress.Service
}

func (b *backend) Close() error {
	return b.db.Close()
}

// openBackend opens the data directory and the database and syncs the
// catalog from the data files.
func openBackend(cfg *Config, logger *slog.Logger) (*backend, error) {
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}

	changed, err := catalog.Sync(db, store, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	recordReloads(changed)

	holder, err := catalog.NewHolder(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	recordCatalog(holder.Current())

	return &backend{
		store:    store,
		db:       db,
		holder:   holder,
		progress: progress.NewService(db, holder),
	}, nil
}

func recordReloads(kinds []models.Kind) {
	for _, k := range kinds {
		metrics.CatalogSyncs.WithLabelValues(string(k)).Inc()
	}
}

func recordCatalog(s *catalog.Snapshot) {
	for _, k := range models.AllKinds {
		es, _ := s.Entities(k)
		metrics.CatalogEntities.WithLabelValues(string(k)).Set(float64(len(es)))
	}
}

// importAutosave imports path and records the outcome. It reports whether
// progress changed.
func importAutosave(ctx context.Context, svc *progress.Service, path string, logger *slog.Logger) bool {
	imported, err := svc.ImportAutosave(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		metrics.AutosaveImports.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Warn("autosave not found", slog.String("path", path))
		return false
	case err != nil:
		metrics.AutosaveImports.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Error("autosave import failed", slog.String("path", path), slog.String("error", err.Error()))
		return false
	case !imported:
		metrics.AutosaveImports.WithLabelValues(metrics.ResultUnchanged).Inc()
		logger.Debug("autosave unchanged", slog.String("path", path))
		return false
	}
	metrics.AutosaveImports.WithLabelValues(metrics.ResultImported).Inc()
	logger.Info("autosave imported", slog.String("path", path))
	return true
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("autosave_path", cfg.Autosave.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	var autosavePath string
	if cfg.Autosave.Path != "" {
		autosavePath, err = filepath.Abs(cfg.Autosave.Path)
		if err != nil {
			return fmt.Errorf("resolve autosave path: %w", err)
		}
		importAutosave(ctx, be.progress, autosavePath, logger)
	}

	gs, err := graph.NewServer(be.progress)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.App.EventsThrottle)
	defer broker.Close()

	apiRouter := api.NewRouter(api.Deps{
		Progress:  be.progress,
		Graph:     gs,
		Events:    broker,
		SSE:       broker,
		AuthToken: cfg.Auth.BearerToken(),
		AssetsDir: cfg.Data.Assets,
		CORS:      cfg.App.CORS,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := be.db.SQL().PingContext(req.Context()); err != nil {
			logger.Error("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher: data files reload the catalog, autosave rewrites
	// re-import progress.
	g.Go(func() error {
		watched := ""
		if cfg.Autosave.Watch {
			watched = autosavePath
		}
		err := catalog.Watch(gCtx, be.db, be.store, watched, logger, func(kind string, detail []string) {
			switch kind {
			case catalog.EventCatalog:
				if err := be.holder.Reload(); err != nil {
					logger.Error("catalog reload failed", slog.String("error", err.Error()))
					return
				}
				for _, k := range detail {
					metrics.CatalogSyncs.WithLabelValues(k).Inc()
				}
				recordCatalog(be.holder.Current())
				broker.PublishCatalogChange(detail)
			case catalog.EventAutosave:
				if importAutosave(gCtx, be.progress, detail[0], logger) {
					broker.PublishProgressReloaded("autosave")
				}
			}
		})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
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

		// Ends open event streams.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	be, err := openBackend(app.config, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	logger.Info("MCP server starting", slog.String("data_path", app.config.Data.Path))
	return mcpserver.New(be.progress, app.version).ServeStdio()
}

// WriteSchema writes the graph schema introspection as indented JSON.
func WriteSchema(ctx context.Context, w io.Writer) error {
	gs, err := graph.NewServer(nil)
	if err != nil {
		return err
	}
	res := gs.Introspect(ctx)
	if res.HasErrors() {
		return fmt.Errorf("introspect: %v", res.Errors)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// ImportAutosave imports the autosave at path into the configured
// database. It reports whether anything changed.
func ImportAutosave(ctx context.Context, path string, opts ...Option) (bool, error) {
	app, logger, err := newApplication(opts)
	if err != nil {
		return false, err
	}
	be, err := openBackend(app.config, logger)
	if err != nil {
		return false, err
	}
	defer be.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	imported, err := be.progress.ImportAutosave(ctx, abs)
	if err != nil {
		return false, fmt.Errorf("import %s: %w", abs, err)
	}
	return imported, nil
}

// EmptyDB forgets all stored progress.
func EmptyDB(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	be, err := openBackend(app.config, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	if err := be.progress.Reset(ctx); err != nil {
		return err
	}
	logger.Info("progress cleared", slog.String("sqlite_path", app.config.SQLite.Path))
	return nil
}
