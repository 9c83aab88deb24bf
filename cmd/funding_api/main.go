package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/funding-audit-ledger/internal/config"
	"github.com/funding-audit-ledger/internal/data/mongo"
	"github.com/funding-audit-ledger/internal/data/postgres"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/funding_api"
	"github.com/funding-audit-ledger/internal/funding_api/service"
	"github.com/funding-audit-ledger/internal/logger"
	"github.com/funding-audit-ledger/internal/platform/locking"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/platform/permission"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("funding_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	if cfg.Postgres.MigrationsPath != "" {
		if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
			log.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Database migrations applied", "path", cfg.Postgres.MigrationsPath)
	}

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	locker, closeLocker, err := locking.New(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize period locker", "error", err)
		os.Exit(1)
	}

	// Publishes admin withdrawal decisions for the processor
	decisionProducer, err := producers.NewDecisionProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize decision Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	recordRepo := postgres.NewRecordRepository(log, postgresDB)
	requestRepo := postgres.NewWithdrawalRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	var policies withdrawal.PolicyRepository = postgres.NewPolicyRepository(log, postgresDB)
	if cfg.Withdrawal.Policies != "" {
		set, err := withdrawal.ParsePolicies(cfg.Withdrawal.Policies)
		if err != nil {
			log.Error("Invalid withdrawal policy configuration", "error", err)
			os.Exit(1)
		}
		policies = set
		log.Info("Using configured withdrawal policies", "policies", cfg.Withdrawal.Policies)
	}

	gate := permission.DefaultMatrix()

	// Initialize services
	services := funding_api.Services{
		Records:        service.NewRecordService(log, postgresDB, recordRepo, outboxRepo, gate),
		Reconciliation: service.NewReconciliationService(log, recordRepo, gate),
		Audit:          service.NewAuditService(log, postgresDB, recordRepo, outboxRepo, locker, gate),
		Withdrawals: service.NewWithdrawalService(log, postgresDB, recordRepo, requestRepo, outboxRepo,
			policies, decisionProducer, gate, cfg.Withdrawal.MinReasonLength),
		History: service.NewHistoryService(log, recordRepo, historyRepo, gate),
	}

	// Initialize REST server
	server := funding_api.NewServer(log, cfg, services)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before closing what they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = decisionProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = closeLocker(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
