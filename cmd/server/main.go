/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the invoice ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (environment, optional .env file)
  2. Initialize logging
  3. Initialize SQLite store
  4. Wire the ledger service, handler, and router
  5. Start the overdue/reminder sweeper
  6. Start the server with graceful shutdown

CONFIGURATION (environment):
  PORT               HTTP server port (default: 8080)
  DB_PATH            SQLite database path (default: invoices.db,
                     ":memory:" for in-memory)
  SWEEP_INTERVAL     Overdue/reminder sweep interval (default: 1h)
  REMINDER_INTERVAL  Minimum gap between reminders (default: 168h)
  LOG_LEVEL          trace..error (default: info)
  LOG_FORMAT         console or json (default: console)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper, close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/warp/invoice-engine/api"
	"github.com/warp/invoice-engine/config"
	"github.com/warp/invoice-engine/invoice"
	"github.com/warp/invoice-engine/logger"
	"github.com/warp/invoice-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// The store doubles as the numbering collaborator.
	svc := invoice.NewService(store, invoice.UUIDGenerator{}, store)

	handler := api.NewHandler(svc)
	handler.Policy = invoice.ReminderPolicy{Interval: cfg.ReminderInterval}

	sweeper := api.NewSweeper(svc, api.NewLogNotifier())
	sweeper.Policy = handler.Policy
	sweeper.CheckInterval = cfg.SweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
