package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicrpm/rpm-portal/internal/api"
	"github.com/clinicrpm/rpm-portal/internal/api/handler"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
	"github.com/clinicrpm/rpm-portal/internal/core/service"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/db/mongo"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/db/redis"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/db/sqldb"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/http/handlers"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/queue"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/resilience"
	"github.com/clinicrpm/rpm-portal/internal/pkg/config"
	"github.com/clinicrpm/rpm-portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	checks := map[string]handlers.Check{"sql": handlers.SQLCheck(db.DB)}

	// --- Session store ---
	var store ports.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		store = redis.NewSessionStore(client)
		checks["redis"] = handlers.RedisCheck(client)
	default:
		store = sqldb.NewSessionStore(db)
	}
	guarded := resilience.NewSessionStore(store, resilience.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}, logger.Component("breaker"))

	// --- Audit trail ---
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	var audit ports.AuditRecorder
	if cfg.Mongo.URI != "" {
		conn, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer conn.Close(context.WithoutCancel(ctx))

		repo := mongo.NewAuditRepository(conn.DB)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("audit index creation failed")
		}
		dispatcher := queue.NewDispatcher(cfg.Audit.Workers, repo, logger.Component("audit"))
		dispatcher.Start(workerCtx)
		defer func() {
			cancelWorkers()
			dispatcher.Wait()
		}()

		audit = dispatcher
		checks["mongo"] = handlers.MongoCheck(conn.DB)
	} else {
		log.Info().Msg("MONGO_URI not set, audit trail disabled")
	}

	// --- Services ---
	sessions := service.NewSessionManager(guarded, service.CookieConfig{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
		Window: cfg.Session.Window,
	}, logger.Component("sessions"))

	auth, err := service.NewAuthService(sqldb.NewAccountRepository(db), audit, cfg.Session.BcryptCost, logger.Component("auth"))
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(sqldb.NewAccountRepository(db), guarded, cfg.Session.BcryptCost, logger.Component("accounts"))
	patients := service.NewPatientService(sqldb.NewPatientRepository(db), logger.Component("patients"))

	renderer, err := handler.NewRenderer()
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Log:      log,
		Debug:    cfg.IsDevelopment(),
		Renderer: renderer,
		Sessions: sessions,
		Auth:     auth,
		Accounts: accounts,
		Patients: patients,
		Checks:   checks,
	})

	go service.NewSweeper(guarded, cfg.Session.SweepInterval, logger.Component("sweeper")).Run(workerCtx)

	return run(ctx, e, cfg, log, cancelWorkers)
}

type server interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// run serves until ctx is cancelled, then drains in-flight requests before
// stopping the background workers.
func run(ctx context.Context, srv server, cfg *config.Config, log zerolog.Logger, stopWorkers context.CancelFunc) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("session_backend", cfg.Session.Backend).Msg("server starting")
		if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		stopWorkers()
		if ok {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	stopWorkers()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
