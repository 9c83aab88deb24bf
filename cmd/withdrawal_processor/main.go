package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/funding-audit-ledger/internal/config"
	"github.com/funding-audit-ledger/internal/data/mongo"
	"github.com/funding-audit-ledger/internal/data/postgres"
	"github.com/funding-audit-ledger/internal/logger"
	"github.com/funding-audit-ledger/internal/platform/messaging/consumers"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/platform/persistence"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/components"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/consumer"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/outbox_poller"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("withdrawal_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Withdrawal Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	recordRepo := postgres.NewRecordRepository(log, postgresDB)
	requestRepo := postgres.NewWithdrawalRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// The unique event_id index makes history writes idempotent
	if err := historyRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure history indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer; nil when no DLQ topic is configured
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	processingService := components.CreateProcessingService(
		postgresDB,
		recordRepo,
		requestRepo,
		outboxRepo,
		dlqProducer,
		log,
		cfg,
	)

	decisionEventHandler := consumer.NewDecisionEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize outbox poller
	historyPublisher := outbox_poller.NewHistoryPublisher(
		outboxRepo,
		historyRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		historyPublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DecisionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, decisionEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		wpService.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Withdrawal Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Withdrawal Processor shutdown completed with errors")
	} else {
		log.Info("Withdrawal Processor shutdown completed successfully")
	}
}
