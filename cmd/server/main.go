// Package main starts the pregnancy medication safety assessment server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/api"
	"github.com/pregmed-safety-server/internal/audit"
	"github.com/pregmed-safety-server/internal/cache"
	"github.com/pregmed-safety-server/internal/config"
	"github.com/pregmed-safety-server/internal/database"
	"github.com/pregmed-safety-server/internal/domain"
	"github.com/pregmed-safety-server/internal/refdata"
	"github.com/pregmed-safety-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reference data: the built-in catalogue always loads; a defective
	// record aborts startup.
	catalog, err := refdata.NewCatalog(logger)
	if err != nil {
		log.Fatalf("Failed to load medication catalogue: %v", err)
	}

	var finder domain.MedicationFinder = catalog
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			log.Fatalf("Failed to connect to catalogue database: %v", err)
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(database.ConnectionURL(cfg.Database), cfg.Database.MigrationsPath, logger)
		if err != nil {
			log.Fatalf("Failed to create migration runner: %v", err)
		}
		if err := runner.Up(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		runner.Close()

		primary := refdata.NewPostgresRepository(db.Pool, logger)
		finder = refdata.NewResilientFinder(primary, catalog, logger)
	}

	// Core engine
	interactions := service.NewInteractionTable(logger)
	conditions := service.NewConditionRegistry(logger, interactions)
	calculator := service.NewRiskCalculator(logger, finder, interactions, conditions)

	// Audit trail
	sink, err := newAuditSink(cfg.Audit)
	if err != nil {
		log.Fatalf("Failed to open audit store: %v", err)
	}
	defer sink.Close()

	retention := audit.NewRetentionWorker(sink, cfg.Audit.RetentionDays, cfg.Audit.PurgeInterval, logger)
	retention.Start()
	defer retention.Stop()

	// Assessment cache
	var assessmentCache *cache.AssessmentCache
	if cfg.Cache.Enabled {
		assessmentCache = newAssessmentCache(cfg.Cache, logger)
	}

	server := api.NewServer(configManager, calculator, finder, conditions, sink, assessmentCache, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// newLogger configures logrus from the logging section.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger
}

// newAuditSink opens the configured audit backend.
func newAuditSink(cfg domain.AuditConfig) (domain.AuditSink, error) {
	if cfg.Backend == "postgres" {
		return audit.NewPostgresStore(cfg.PostgresURL)
	}
	return audit.NewSQLiteStore(cfg.SQLitePath)
}

// newAssessmentCache builds the cache, attaching the Redis tier when a
// URL is configured. A bad Redis URL degrades to memory-only caching.
func newAssessmentCache(cfg domain.CacheConfig, logger *logrus.Logger) *cache.AssessmentCache {
	if cfg.RedisURL == "" {
		return cache.New(cfg, nil, logger)
	}
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		logger.WithError(err).Warn("Invalid Redis URL, assessment cache is memory-only")
		return cache.New(cfg, nil, logger)
	}
	return cache.New(cfg, redisClient, logger)
}
