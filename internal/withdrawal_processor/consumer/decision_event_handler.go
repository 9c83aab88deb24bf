package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// DecisionEventHandler handles withdrawal decision messages from Kafka
type DecisionEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewDecisionEventHandler creates a new handler
func NewDecisionEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *DecisionEventHandler {
	return &DecisionEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *DecisionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var decision withdrawal.Decision
	if err := json.Unmarshal(value, &decision); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal withdrawal decision from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if decision.CorrelationID != "" {
		logger = h.logger.With("correlation_id", decision.CorrelationID)
	}

	logger.Info("Received withdrawal decision",
		"request_id", decision.RequestID.String(),
		"record_id", decision.RecordID.String(),
		"outcome", decision.Outcome,
		"decided_by", decision.DecidedBy,
	)

	if err := h.processingService.ApplyDecision(ctx, &decision); err != nil {
		return fmt.Errorf("applying decision for request %s failed: %w", decision.RequestID.String(), err)
	}
	return nil
}
