package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/shared"
)

// HistoryPublisher projects outbox messages into the history store
type HistoryPublisher interface {
	PublishToHistory(ctx context.Context, message *outbox.Message) error
}

// HistoryPublisherImpl implements HistoryPublisher
type HistoryPublisherImpl struct {
	outboxRepo  outbox.Repository
	historyRepo history.Repository
	logger      *slog.Logger
}

// NewHistoryPublisher creates a new publisher
func NewHistoryPublisher(
	outboxRepo outbox.Repository,
	historyRepo history.Repository,
	logger *slog.Logger,
) HistoryPublisher {
	return &HistoryPublisherImpl{
		outboxRepo:  outboxRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

// PublishToHistory writes the message's event and marks it PROCESSED. An
// event already present counts as written, so redelivery is harmless.
func (p *HistoryPublisherImpl) PublishToHistory(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal history event from outbox payload",
			"outbox_id", message.ID, "record_id", message.RecordID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	now := time.Now().UTC()
	event.RecordedAt = &now

	if err := p.historyRepo.Create(ctx, event); err != nil {
		if !errors.Is(err, history.ErrDuplicateEvent{}) {
			logger.Error("Failed to create history event in MongoDB", "event_id", event.EventID, "error", err)
			return fmt.Errorf("failed to create history event %s: %w", event.EventID, err)
		}
		logger.Info("History event already recorded", "event_id", event.EventID)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", event.EventID, "error", err,
		)
		return fmt.Errorf("history write for %s OK, but failed to mark outbox %d as PROCESSED: %w", event.EventID, message.ID, err)
	}

	logger.Info("Outbox message projected to history", "outbox_id", message.ID, "event_id", event.EventID, "record_id", event.RecordID)
	return nil
}
