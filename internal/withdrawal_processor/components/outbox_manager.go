package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry writes the history event of a decided withdrawal
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision, rec *record.FundingRecord, from shared.RecordStatus, trigger record.Trigger) error {
	logger := m.logger
	if decision.CorrelationID != "" {
		logger = m.logger.With("correlation_id", decision.CorrelationID)
	}

	event := history.NewEvent(rec, from, trigger, decision.DecidedBy)
	event.Note = decision.Note
	event.CorrelationID = decision.CorrelationID

	outboxMessage, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)", "record_id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message payload for record %s: %w", rec.ID, err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message", "record_id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message for record %s: %w", rec.ID, err)
	}

	logger.Info("Outbox message created successfully",
		"record_id", rec.ID.String(),
		"event_id", event.EventID.String(),
		"outbox_id", outboxMessage.ID,
	)
	return nil
}
