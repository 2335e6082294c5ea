package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/repcoach/internal/envstruct"
	"github.com/myrjola/repcoach/internal/errors"
	"github.com/myrjola/repcoach/internal/health"
	"github.com/myrjola/repcoach/internal/logging"
	"github.com/myrjola/repcoach/internal/metrics"
	"github.com/myrjola/repcoach/internal/sqlite"
	"github.com/myrjola/repcoach/internal/uistate"
	"github.com/myrjola/repcoach/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	registry       *prometheus.Registry
	metrics        *metrics.Manager
	workoutService *workout.Service
	healthService  *health.Service
	uiStateService *uistate.Service
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"REPCOACH_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"REPCOACH_SQLITE_URL" envDefault:"./repcoach.sqlite3"`
	// OpenAIAPIKey enables generated movement descriptions. Without it, generated movements are minimal.
	OpenAIAPIKey string `env:"REPCOACH_OPENAI_API_KEY" envDefault:""`
	// SourcesFile is an optional TOML file with the source priority used to resolve duplicate workouts.
	SourcesFile string `env:"REPCOACH_SOURCES_FILE" envDefault:""`
	// ReconcileSchedule is the cron expression of the background reconciliation.
	ReconcileSchedule string `env:"REPCOACH_RECONCILE_SCHEDULE" envDefault:"@hourly"`
	// VitalsRetention is how long vital samples are kept. Zero keeps them forever.
	VitalsRetention time.Duration `env:"REPCOACH_VITALS_RETENTION" envDefault:"8760h"`
}

type logConfig struct {
	// File is an optional log file rotated by size in addition to stdout.
	File string `env:"REPCOACH_LOG_FILE" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	sources := health.DefaultSources()
	if cfg.SourcesFile != "" {
		if sources, err = health.LoadSources(cfg.SourcesFile); err != nil {
			return errors.Wrap(err, "load sources", slog.String("path", cfg.SourcesFile))
		}
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(context.Background(), slog.LevelError, "failed to close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sessionManager, sessionStore := initializeSessionManager(db)
	defer sessionStore.StopCleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct // defaults.
	)
	metricsManager := metrics.NewManager("repcoach", "web", registry)

	workoutService := workout.NewService(db, logger, cfg.OpenAIAPIKey)
	healthService := health.NewService(db, logger, metricsManager, sources, workoutService)
	scheduler, err := health.NewScheduler(healthService, logger, cfg.ReconcileSchedule, cfg.VitalsRetention)
	if err != nil {
		return errors.Wrap(err, "new scheduler")
	}

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		registry:       registry,
		metrics:        metricsManager,
		workoutService: workoutService,
		healthService:  healthService,
		uiStateService: uistate.NewService(db, logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if serveErr := app.configureAndStartServer(ctx, cfg.Addr, app.routes()); serveErr != nil {
			return errors.Wrap(serveErr, "start server")
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	if err = g.Wait(); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database) (*scs.SessionManager, *sqlite3store.SQLite3Store) {
	store := sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = 365 * 24 * time.Hour //nolint:mnd // profiles are anonymous, losing the cookie loses the data.
	sessionManager.IdleTimeout = 0
	sessionManager.Cookie.Name = "repcoach_session"
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager, store
}

func main() {
	ctx := context.Background()

	var logCfg logConfig
	if err := envstruct.Populate(&logCfg, os.LookupEnv); err != nil {
		logging.NewTextLogger(os.Stderr, slog.LevelInfo).LogAttrs(ctx, slog.LevelError, "invalid log configuration",
			errors.SlogError(err))
		os.Exit(1)
	}
	logger, logCloser := logging.NewLogger(logging.Config{Level: slog.LevelDebug, File: logCfg.File})

	err := run(ctx, logger, os.LookupEnv)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure running application", errors.SlogError(err))
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}
