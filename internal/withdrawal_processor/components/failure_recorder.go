package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// FailureRecorderImpl parks unappliable decisions on the dead letter queue
type FailureRecorderImpl struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

// NewFailureRecorder creates a new FailureRecorderImpl
func NewFailureRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		dlq:    dlq,
		logger: logger,
	}
}

// RecordFailure publishes the decision and the reason it failed to the DLQ
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, decision *withdrawal.Decision, failureReason string) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal decision %s: %w", decision.RequestID, err)
	}

	if err := r.dlq.PublishToDLQ(ctx, decision.RecordID.String(), payload, failureReason); err != nil {
		return fmt.Errorf("failed to park decision %s: %w", decision.RequestID, err)
	}

	r.logger.Info("Withdrawal decision parked",
		"request_id", decision.RequestID.String(),
		"record_id", decision.RecordID.String(),
		"reason", failureReason,
	)
	return nil
}
