// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mkowalczyk/schemasync/adapters/clock"
	"github.com/mkowalczyk/schemasync/adapters/fsdir"
	"github.com/mkowalczyk/schemasync/adapters/idgen"
	"github.com/mkowalczyk/schemasync/adapters/memory"
	"github.com/mkowalczyk/schemasync/adapters/metrics"
	"github.com/mkowalczyk/schemasync/adapters/sqlite"
	"github.com/mkowalczyk/schemasync/app"
	"github.com/mkowalczyk/schemasync/config"
	"github.com/mkowalczyk/schemasync/ports"
	"github.com/mkowalczyk/schemasync/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	DB         *sqlite.DB
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry
	Holder     *config.Holder

	// Services
	healthService   *app.HealthService
	syncService     *app.SyncService
	mutationService *app.MutationService
	handler         *web.Handler

	// Stores
	docs ports.DocumentStore
	repo ports.RepositoryStore
}

// New creates and initializes the application from a loaded config.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	a := &App{Logger: logger}
	if err := a.init(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithHotReload creates the application with a config file watcher.
// SIGHUP and file edits reload the tunable settings without a restart.
func NewWithHotReload(path string) (*App, error) {
	holder, err := config.NewHolder(path, zerolog.New(os.Stdout).With().Timestamp().Logger())
	if err != nil {
		return nil, err
	}

	cfg := holder.Get()
	logger := setupLogger(cfg.Logging)

	a := &App{Logger: logger, Holder: holder}
	if err := a.init(cfg); err != nil {
		holder.Stop()
		return nil, err
	}

	holder.OnChange(a.applyConfig)
	if err := holder.WatchFile(); err != nil {
		logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()
	return a, nil
}

func (a *App) init(cfg *config.Config) error {
	a.Logger.Info().Str("driver", cfg.Storage.Driver).Msg("initializing schemasync")

	if err := a.initStorage(cfg); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.Metrics, a.Registry = metrics.New()
		a.Logger.Info().Msg("prometheus metrics enabled")
	}

	a.healthService = app.NewHealthService(a.docs, a.repo, a.Logger, a.Metrics)
	a.syncService = app.NewSyncService(a.docs, a.repo, a.Logger, a.Metrics)
	a.mutationService = app.NewMutationService(a.docs, a.repo, clock.Real{}, idgen.UUID{}, a.Logger, a.Metrics)

	a.handler = web.NewHandler(web.Deps{
		Documents:  a.docs,
		Repository: a.repo,
		Health:     a.healthService,
		Sync:       a.syncService,
		Mutation:   a.mutationService,
		Logger:     a.Logger,
		Metrics:    a.Metrics,
		Registry:   a.Registry,
	})
	a.applyConfig(cfg)

	a.HTTPServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

func (a *App) initStorage(cfg *config.Config) error {
	switch cfg.Storage.Driver {
	case "memory":
		a.docs = memory.NewDocumentStore()
		a.repo = memory.NewRepositoryStore()

	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		a.docs = sqlite.NewDocumentStore(db)
		a.repo = sqlite.NewRepositoryStore(db)

	case "dir":
		store, err := fsdir.New(cfg.Storage.Dir, cfg.Storage.RepoFile)
		if err != nil {
			return fmt.Errorf("open document directory: %w", err)
		}
		a.docs = store
		a.repo = store.Repository()

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return nil
}

// applyConfig pushes the reloadable settings into running services.
func (a *App) applyConfig(cfg *config.Config) {
	a.healthService.Workers = cfg.Health.Workers
	a.healthService.FetchTimeout = cfg.Health.FetchTimeout
	a.syncService.Workers = cfg.Health.Workers
	a.syncService.FetchTimeout = cfg.Health.FetchTimeout
	a.mutationService.Workers = cfg.Health.Workers
	a.mutationService.FetchTimeout = cfg.Health.FetchTimeout

	a.handler.DefaultBranch = cfg.Storage.Branch
	a.handler.AdminTokenHash = cfg.Auth.AdminTokenHash
	a.handler.AuthHeader = cfg.Auth.Header
	a.handler.PreserveValues = cfg.Sync.PreserveValues
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.Holder != nil {
		a.Holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
