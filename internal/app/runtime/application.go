// Package runtime assembles the canteen service from configuration: stores,
// sessions, event publishers, seed data and the HTTP server.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/canteen_pos/internal/app"
	"github.com/R3E-Network/canteen_pos/internal/app/events"
	"github.com/R3E-Network/canteen_pos/internal/app/httpapi"
	"github.com/R3E-Network/canteen_pos/internal/app/seed"
	"github.com/R3E-Network/canteen_pos/internal/app/session"
	"github.com/R3E-Network/canteen_pos/internal/app/storage/postgres"
	"github.com/R3E-Network/canteen_pos/internal/config"
	"github.com/R3E-Network/canteen_pos/internal/platform/migrations"
	"github.com/R3E-Network/canteen_pos/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	handler    http.Handler
	httpServer *http.Server
	db         *sql.DB
	closers    []func() error
}

// NewLogger builds the root logger from configuration.
func NewLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})
}

// NewApplication constructs the service. Nothing listens until Run.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = NewLogger(cfg)
	}
	a := &Application{cfg: cfg, log: log}

	stores, err := a.buildStores(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	sessions, err := a.buildSessions(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configure sessions: %w", err)
	}

	var publishers []events.Publisher
	if cfg.AMQP.URL != "" {
		publishers = append(publishers, events.NewAMQPPublisher(cfg.AMQP.URL, log.Named("amqp")))
	} else {
		log.Info("AMQP_URL not set; order events stay in process")
	}

	application, err := app.New(stores, app.Options{
		Sessions:       sessions,
		SweepSchedule:  cfg.Session.SweepSchedule,
		AllowedOrigins: cfg.CORS.Origins(),
		Publishers:     publishers,
	}, log)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build application: %w", err)
	}
	a.app = application

	if cfg.SeedFile != "" {
		fixtures, err := seed.Load(cfg.SeedFile)
		if err != nil {
			a.close()
			return nil, err
		}
		if _, err := seed.Apply(ctx, fixtures, application.Admin, application.Shops, log.Named("seed")); err != nil {
			a.close()
			return nil, fmt.Errorf("apply seed: %w", err)
		}
	}

	tokens, err := session.NewTokens(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		a.close()
		return nil, err
	}

	a.handler = httpapi.NewHandler(application, httpapi.Config{
		Tokens:         tokens,
		SecureCookie:   cfg.Session.SecureCookie,
		AllowedOrigins: cfg.CORS.Origins(),
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
		LoginBurst:     cfg.RateLimit.LoginBurst,
	}, log.Named("http"))

	a.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler, mostly for tests.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run starts background services and the HTTP server, and blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server, stops background services and releases
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	a.close()
	return errors.Join(errs...)
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("error releasing resource")
		}
	}
	a.closers = nil
}

func (a *Application) buildStores(ctx context.Context) (app.Stores, error) {
	if a.cfg.Database.Driver != "postgres" {
		a.log.Warn("DATABASE_DRIVER is memory; data is lost on restart")
		return app.Stores{}, nil
	}

	if a.cfg.Database.Migrate {
		if err := migrations.Apply(ctx, a.cfg.Database.DSN); err != nil {
			return app.Stores{}, fmt.Errorf("migrate: %w", err)
		}
		a.log.Info("database migrations applied")
	}

	db, err := openDatabase(ctx, a.cfg.Database)
	if err != nil {
		return app.Stores{}, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	store := postgres.New(db)
	return app.Stores{
		Students: store,
		Admins:   store,
		Shops:    store,
		Menu:     store,
		Orders:   store,
		Reports:  store,
	}, nil
}

func (a *Application) buildSessions(ctx context.Context) (session.Store, error) {
	if a.cfg.Session.Store != "redis" {
		return nil, nil
	}
	store, err := session.NewRedisStoreFromURL(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
