/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Outreach Analytics server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, merge with optional YAML config
  2. Initialize SQLite store (also serves as the cache substrate)
  3. Build the report engine
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: outreach.db)
           Use ":memory:" for an in-memory database
  -config  Optional YAML config file; flags win over the file

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/outreach.db"

  # Run with a config file
  ./server -config=./outreach.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database and cache substrate
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/outreach-analytics/analytics"
	"github.com/fieldops/outreach-analytics/api"
	"github.com/fieldops/outreach-analytics/config"
	"github.com/fieldops/outreach-analytics/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	cfgPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	logger, err := zap.NewProductionConfig().Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Build engine; the SQLite store serves every port, including the
	// cache substrate, so cached reports survive restarts.
	engine := analytics.NewEngine(store, store, store, store, analytics.EngineConfig{
		Title:                  cfg.Report.Title,
		CacheTTL:               cfg.CacheTTL(),
		ChunkSize:              cfg.Fetch.ChunkSize,
		PerformingThreshold:    cfg.Report.PerformingThreshold,
		HighPerformerThreshold: cfg.Report.HighPerformerThreshold,
	}, logger)

	handler := api.NewHandler(engine, store, store, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Store.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
