package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/wardsync/internal/adapter/postgres"
	"github.com/heartmarshall/wardsync/internal/adapter/remote"
	"github.com/heartmarshall/wardsync/internal/adapter/sqlite"
	"github.com/heartmarshall/wardsync/internal/auth"
	"github.com/heartmarshall/wardsync/internal/config"
	"github.com/heartmarshall/wardsync/internal/connectivity"
	"github.com/heartmarshall/wardsync/internal/service/intake"
	"github.com/heartmarshall/wardsync/internal/service/offline"
	"github.com/heartmarshall/wardsync/internal/service/syncer"
	"github.com/heartmarshall/wardsync/internal/transport/middleware"
	"github.com/heartmarshall/wardsync/internal/transport/rest"
)

// engine is what the app needs from a storage driver beyond its repositories.
type engine interface {
	Initialize(ctx context.Context) error
	Ping(ctx context.Context) error
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close() error
}

// App holds the wired components of the agent.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Storage engine
	Records *offline.RecordStore
	Pending *offline.PendingLog
	Tokens  *auth.TokenStore
	Remote  *remote.Client
	Monitor *connectivity.Monitor
	Banner  *connectivity.Banner
	Syncer  *syncer.Coordinator
	Intake  *intake.Service
}

// Build wires every component for cfg. Storage is not opened yet; call
// Initialize before use.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: logger}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		e := sqlite.NewEngine(cfg.Storage.Path, cfg.Storage.BusyTimeout, logger)
		a.Storage = e
		a.Records = offline.NewRecordStore(logger, sqlite.NewRecordRepo(e))
		a.Pending = offline.NewPendingLog(logger, sqlite.NewOperationRepo(e))
		a.Tokens = auth.NewTokenStore(logger, sqlite.NewSettingRepo(e))
	case config.DriverPostgres:
		e := postgres.NewEngine(cfg.Storage, logger)
		a.Storage = e
		a.Records = offline.NewRecordStore(logger, postgres.NewRecordRepo(e))
		a.Pending = offline.NewPendingLog(logger, postgres.NewOperationRepo(e))
		a.Tokens = auth.NewTokenStore(logger, postgres.NewSettingRepo(e))
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}

	client, err := remote.NewClient(cfg.Remote, a.Tokens, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Remote = client

	a.Monitor = connectivity.NewMonitor(logger, cfg.Connectivity.InitialOnline)
	a.Banner = connectivity.NewBanner(cfg.Connectivity.RestoredNoticeTTL)
	a.Syncer = syncer.NewCoordinator(ctx, logger, a.Pending, a.Records, a.Remote)
	a.Intake = intake.NewService(logger, a.Monitor, a.Remote, a.Records, a.Pending, a.Storage)

	a.Banner.Attach(a.Monitor)
	a.Monitor.Subscribe(a.Syncer.OnConnectivityChange)

	return a, nil
}

// Initialize opens and migrates storage.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.Records.Initialize(ctx); err != nil {
		return err
	}
	return a.Pending.Initialize(ctx)
}

// Close waits for background drains and releases storage.
func (a *App) Close() error {
	a.Banner.Stop()
	a.Syncer.Wait()
	return a.Storage.Close()
}

// Handler builds the HTTP handler for the local API.
func (a *App) Handler() http.Handler {
	h := rest.Handlers{
		Health:   rest.NewHealthHandler(a.Storage, a.Monitor, BuildVersion()),
		Patients: rest.NewPatientHandler(a.Intake, a.Records, a.Log),
		Agent:    rest.NewAgentHandler(a.Pending, a.Syncer, a.Monitor, a.Banner, a.Tokens, a.Log),
	}
	router := rest.NewRouter(h, middleware.LocalKey(a.Config.Server.APIKey))

	return middleware.Standard(a.Log, a.Config.CORS)(router)
}

// Run serves the local API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting wardsync",
		slog.String("version", BuildVersion()),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("remote", cfg.Remote.BaseURL),
		slog.String("connectivity_source", cfg.Connectivity.Source),
	)

	a, err := Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close storage", slog.String("error", err.Error()))
		}
	}()

	if err := a.Initialize(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	if cfg.Sync.PurgeOnStart {
		if _, err := a.Records.PurgeSyncedOlderThan(ctx, cfg.Sync.Retention()); err != nil {
			logger.Error("purge on start failed", slog.String("error", err.Error()))
		}
	}

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      a.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Connectivity.Source == config.SourceProbe {
		probe := connectivity.NewProbeSource(logger, a.Remote,
			cfg.Connectivity.ProbePath, cfg.Connectivity.ProbeInterval, cfg.Connectivity.ProbeTimeout)
		g.Go(func() error {
			return probe.Run(gctx, a.Monitor)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
