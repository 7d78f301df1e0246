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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/licaudit/internal/api"
	"github.com/starford/licaudit/internal/index"
	"github.com/starford/licaudit/internal/mcpserver"
	"github.com/starford/licaudit/internal/sse"
	"github.com/starford/licaudit/internal/storage"
	"github.com/starford/licaudit/internal/workspace"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// project bundles everything opened for one project directory.
type project struct {
	store    *storage.FS
	db       *index.DB
	ws       *workspace.Workspace
	registry *prometheus.Registry
}

func (p *project) Close() error {
	return p.db.Close()
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func openProject(ctx context.Context, cfg *Config, logger *slog.Logger, reg *prometheus.Registry, opts ...workspace.Option) (*project, error) {
	if err := os.MkdirAll(cfg.Project.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Project.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	opts = append([]workspace.Option{
		workspace.WithInput(cfg.Project.Input),
		workspace.WithExportDir(cfg.Project.ExportDir),
		workspace.WithCacheEntries(cfg.Cache.IndexEntries),
		workspace.WithMetrics(workspace.NewMetrics(reg)),
	}, opts...)
	ws, err := workspace.New(store, db, logger, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	// A missing or broken input is not fatal: the watcher or an upload can
	// still bring one in.
	if err := ws.Load(ctx); err != nil {
		logger.Warn("initial load failed",
			slog.String("path", cfg.Project.Input),
			slog.String("error", err.Error()))
	}
	return &project{store: store, db: db, ws: ws, registry: reg}, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// newRouter builds the root HTTP router.
func newRouter(cfg *Config, p *project, broker *sse.Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health and metrics endpoints (unauthenticated).
	r.Get("/health/live", healthHandler)
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		if !p.ws.Status().Loaded {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no input loaded"}`))
			return
		}
		healthHandler(w, req)
	})
	r.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))

	r.Mount("/api", api.NewRouter(p.ws, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))
	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_dir", cfg.Project.Dir),
		slog.String("input", cfg.Project.Input),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := newRegistry()
	var p *project
	broker := sse.NewBroker(cfg.Events.StatisticsThrottle,
		sse.WithMetrics(reg),
		sse.WithGreeting(func() (uint64, any) {
			st := p.ws.Status()
			return st.Generation, st
		}))
	defer broker.Close()

	p, err = openProject(ctx, cfg, logger, reg, workspace.WithOnChange(func(c workspace.Change) {
		broker.PublishChange(c.Kind, c.IDs, c.Generation)
	}))
	if err != nil {
		return err
	}
	defer p.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newRouter(cfg, p, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Project.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, p.db, p.store, p.store.Root(), cfg.Project.Input, logger, p.ws.HandleInputEvent)
			if err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	p, err := openProject(ctx, cfg, logger, newRegistry())
	if err != nil {
		return err
	}
	defer p.Close()

	if cfg.Project.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := index.Watch(watchCtx, p.db, p.store, p.store.Root(), cfg.Project.Input, logger, p.ws.HandleInputEvent); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("MCP server starting", slog.String("project_dir", cfg.Project.Dir))
	return mcpserver.New(p.ws).ServeStdio()
}
