/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the textile allocation service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Build the zap logger
  3. Open the SQLite store, and the MongoDB report archive when configured
  4. Create validator, report service, API handler and router
  5. Attach the upstream client when configured (allocation submit, sync)
  6. Start the scheduler (report job, upstream sync when configured)
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -env     Path to an env file (default: .env when present)
  -port    HTTP server port, overrides APP_PORT
  -db      SQLite database path, overrides DB_PATH
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (15s timeout)
  3. Stop the scheduler, waiting for a running job
  4. Close archive and database connections

EXAMPLES:
  # Run with file database
  ./server -db="./data/textile.db"

  # Run with in-memory database on a different port
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - scheduler/scheduler.go: Scheduled jobs
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/textile-ops/allocation"
	"github.com/warp/textile-ops/api"
	"github.com/warp/textile-ops/backend"
	"github.com/warp/textile-ops/config"
	"github.com/warp/textile-ops/logger"
	"github.com/warp/textile-ops/report"
	"github.com/warp/textile-ops/scheduler"
	"github.com/warp/textile-ops/store/mongodb"
	"github.com/warp/textile-ops/store/sqlite"
)

func main() {
	// Flags
	envFile := flag.String("env", "", "Path to env file")
	port := flag.String("port", "", "HTTP server port (overrides APP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	// Initialize store
	store, err := sqlite.New(cfg.Storage.DBPath)
	if err != nil {
		baseLogger.Fatal("failed to initialize database", zap.Error(err), zap.String("path", cfg.Storage.DBPath))
	}
	defer store.Close()

	archives := []allocation.ReportArchive{store}
	if cfg.MongoDB.URI != "" {
		archive, err := mongodb.NewArchive(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb report archive", zap.Error(err))
		}
		defer func() {
			if err := archive.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		archives = append(archives, archive)
		baseLogger.Info("mongodb report archive enabled", zap.String("db", cfg.MongoDB.DBName))
	}

	reports := report.NewService(store, logger.Named(baseLogger, "svc.reports"), archives...)
	validator := allocation.NewValidator(loc)
	handler := api.NewHandler(store, reports, validator, logger.Named(baseLogger, "handlers"))
	router := api.NewRouter(handler, api.RouterOptions{
		APIToken:    cfg.Server.APIToken,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger.Named(baseLogger, "router"),
	})

	// Upstream client: allocation submit and reference data sync
	var source scheduler.Source
	if cfg.Upstream.BaseURL != "" {
		client := backend.NewClient(cfg.Upstream)
		handler.WithUpstream(client)
		source = client
		baseLogger.Info("upstream enabled", zap.String("url", cfg.Upstream.BaseURL))
	} else {
		baseLogger.Warn("UPSTREAM_URL not set, allocations stay local and reference data sync is disabled")
	}

	// Initialize scheduler
	sched := scheduler.New(*cfg, reports, store, source, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
