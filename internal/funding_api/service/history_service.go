package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/platform/permission"
)

// HistoryServiceImpl implements the HistoryService interface
type HistoryServiceImpl struct {
	recordRepo  record.Repository
	historyRepo history.Repository
	gate        permission.Gate
	logger      *slog.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(logger *slog.Logger, recordRepo record.Repository, historyRepo history.Repository, gate permission.Gate) HistoryService {
	return &HistoryServiceImpl{
		recordRepo:  recordRepo,
		historyRepo: historyRepo,
		gate:        gate,
		logger:      logger,
	}
}

// RecordHistory retrieves a page of transition events for a record.
// Events reach the history store through the outbox, so the newest
// transitions may be missing for a short while.
func (s *HistoryServiceImpl) RecordHistory(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID, page, perPage int) ([]*history.Event, int64, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionView, ""); err != nil {
		return nil, 0, err
	}
	if _, err := s.recordRepo.GetByID(ctx, kind, id); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(page, perPage)
	events, err := s.historyRepo.ListByRecordID(ctx, id, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list record history", "record_id", id.String(), "error", err)
		return nil, 0, err
	}

	total, err := s.historyRepo.CountByRecordID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to count record history", "record_id", id.String(), "error", err)
		return nil, 0, err
	}

	return events, total, nil
}
