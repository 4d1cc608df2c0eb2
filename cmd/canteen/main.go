// Command canteen runs the school canteen point-of-sale API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/canteen_pos/internal/app/runtime"
	"github.com/R3E-Network/canteen_pos/internal/config"
	"github.com/R3E-Network/canteen_pos/internal/platform/migrations"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "Apply database migrations and exit")
	seedFile := flag.String("seed", "", "Seed file to apply at startup (\"sample\" for demo data); overrides CANTEEN_SEED_FILE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logr := runtime.NewLogger(cfg)

	if *migrateOnly {
		if cfg.Database.Driver != "postgres" {
			logr.Fatal("-migrate-only requires DATABASE_DRIVER=postgres")
		}
		if err := migrations.Apply(ctx, cfg.Database.DSN); err != nil {
			logr.WithError(err).Fatal("migrate")
		}
		logr.Info("migrations applied")
		return
	}

	app, err := runtime.NewApplication(ctx, cfg, logr)
	if err != nil {
		logr.WithError(err).Fatal("initialise application")
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		logr.WithError(runErr).Error("server stopped")
	}

	logr.Info("shutting down")
	if err := app.Shutdown(context.Background()); err != nil {
		logr.WithError(err).Error("shutdown")
	}
	if runErr != nil {
		os.Exit(1)
	}
}
