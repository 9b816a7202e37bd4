// Package app wires the daemon together: database, pollers, and the REST
// server, with signal-driven graceful shutdown.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/controllers/restserver"
	"github.com/snowroute/snowroute/internal/controllers/snotel"
	"github.com/snowroute/snowroute/internal/controllers/traffic"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

// App represents the main application
type App struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.Config, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db := database.NewClient(a.cfg.Storage.ConnectionString, a.logger)
	if err := db.Connect(); err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	// Pollers are optional: a deployment can run the API alone against an
	// already-populated database.
	if len(a.cfg.Stations) > 0 {
		sc, err := snotel.NewController(ctx, &wg, a.cfg, db, a.logger)
		if err != nil {
			return err
		}
		if err := sc.StartController(); err != nil {
			return err
		}
	} else {
		log.Info("No weather stations configured - skipping SNOTEL poller")
	}

	if len(a.cfg.ActiveRoutes()) > 0 && a.cfg.Traffic.APIKey != "" {
		tc, err := traffic.NewController(ctx, &wg, a.cfg, db, a.logger)
		if err != nil {
			return err
		}
		if err := tc.StartController(); err != nil {
			return err
		}
	} else {
		log.Info("No active routes or API key configured - skipping traffic poller")
	}

	rest, err := restserver.NewController(ctx, &wg, a.cfg, db, a.logger)
	if err != nil {
		return err
	}
	if err := rest.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
