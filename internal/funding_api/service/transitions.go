package service

import (
	"context"
	"fmt"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/logger"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// recordTransition writes the history event of rec's last transition to the
// outbox. outboxRepo must be bound to the transaction that changed rec.
func recordTransition(ctx context.Context, outboxRepo outbox.Repository, rec *record.FundingRecord, from shared.RecordStatus, trigger record.Trigger, actor, note string) error {
	event := history.NewEvent(rec, from, trigger, actor)
	event.Note = note
	event.CorrelationID = logger.CorrelationID(ctx)

	msg, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := outboxRepo.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to write outbox message for record %s: %w", rec.ID, err)
	}
	return nil
}

// pageBounds turns a 1-based page into limit and offset
func pageBounds(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
