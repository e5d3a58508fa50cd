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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notable/internal/api"
	"github.com/starford/notable/internal/mcpserver"
	"github.com/starford/notable/internal/noteservice"
	"github.com/starford/notable/internal/sse"
	"github.com/starford/notable/internal/storage"
	"github.com/starford/notable/internal/watcher"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger creates the structured JSON logger and installs it as default.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// openStore builds the configured provider and prepares it for use. The
// returned path is the local file to watch, empty for remote backends.
func openStore(ctx context.Context, cfg StoreConfig) (storage.Provider, string, error) {
	var (
		store     storage.Provider
		watchPath string
	)
	switch cfg.Backend {
	case BackendS3:
		s3Store, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Key:             cfg.S3.Key,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, "", err
		}
		store = s3Store
	default:
		fsStore, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, "", err
		}
		store, watchPath = fsStore, fsStore.Path()
	}

	if err := store.Init(ctx); err != nil {
		return nil, "", fmt.Errorf("init store: %w", err)
	}
	return store, watchPath, nil
}

// serverDeps are the collaborators the HTTP handler is assembled from.
type serverDeps struct {
	svc      *noteservice.Service
	events   http.Handler
	metrics  *api.Metrics
	gatherer prometheus.Gatherer
	limiter  *api.RateLimiter
}

// newHTTPHandler builds the root chi router: health checks, metrics, the
// API under /api and the optional static client.
func newHTTPHandler(cfg *Config, deps serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok", nil)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.svc.Ping(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable", err)
			return
		}
		writeStatus(w, http.StatusOK, "ok", nil)
	})

	if deps.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.gatherer, promhttp.HandlerOpts{}))
	}

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(deps.svc, api.Options{
		Events:      deps.events,
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
		RateLimiter: deps.limiter,
		Metrics:     deps.metrics,
	}))

	if cfg.App.HTTP.StaticDir != "" {
		r.Handle("/*", api.NewStaticHandler(cfg.App.HTTP.StaticDir))
	}

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{"status": status}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logOutput, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("serialize_writes", cfg.Store.SerializeWrites),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, watchPath, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	svcOpts := []noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithNotifier(broker),
		noteservice.WithSerializedWrites(cfg.Store.SerializeWrites),
	}

	deps := serverDeps{events: broker}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.metrics = api.NewMetrics(reg)
		deps.gatherer = reg
		svcOpts = append(svcOpts, noteservice.WithNotifier(deps.metrics))
	}
	if cfg.RateLimit.Enabled() {
		deps.limiter = api.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, deps.metrics)
	}
	deps.svc = noteservice.New(store, svcOpts...)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the store file for edits made outside this process.
	if watchPath != "" {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, watchPath, logger, broker.StoreChanged); err != nil {
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

		// Open SSE streams would otherwise hold Shutdown until the timeout.
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

// RunMCP serves the note tools over stdio. Logs go to the configured
// output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(app.logOutput, cfg.App.LogLevel)

	store, _, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	svc := noteservice.New(store,
		noteservice.WithLogger(logger),
		noteservice.WithSerializedWrites(cfg.Store.SerializeWrites),
	)

	logger.Info("MCP server starting on stdio", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}
