package components

import (
	"log/slog"

	"github.com/funding-audit-ledger/internal/config"
	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/platform/persistence"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	db persistence.TxRunner,
	recordRepo record.Repository,
	requestRepo withdrawal.Repository,
	outboxRepo outbox.Repository,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	baseService := service.NewProcessingService(
		db,
		NewDecisionValidator(requestRepo, logger),
		NewRecordManager(recordRepo, logger),
		NewRequestManager(requestRepo, logger),
		NewOutboxManager(outboxRepo, logger),
		NewFailureRecorder(dlq, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
