package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/funding-audit-ledger/internal/domain/reconciliation"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/platform/permission"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	recordRepo record.Repository
	gate       permission.Gate
	logger     *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, recordRepo record.Repository, gate permission.Gate) ReconciliationService {
	return &ReconciliationServiceImpl{
		recordRepo: recordRepo,
		gate:       gate,
		logger:     logger,
	}
}

// View joins the actual user and finance records matching query. The view is
// rebuilt from stored state on every call.
func (s *ReconciliationServiceImpl) View(ctx context.Context, actor permission.Actor, query ViewQuery) ([]reconciliation.Row, error) {
	scope := ""
	if query.FundNeedID != uuid.Nil {
		scope = query.FundNeedID.String()
	}
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceReconciliation, permission.ActionView, scope); err != nil {
		return nil, err
	}

	filter := record.Filter{FundNeedID: query.FundNeedID, Year: query.Year, Month: query.Month}

	filter.Kind = shared.RecordKindActualUser
	users, err := s.recordRepo.FindMany(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to load user records for reconciliation", "error", err)
		return nil, err
	}

	filter.Kind = shared.RecordKindActualFinance
	finances, err := s.recordRepo.FindMany(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to load finance records for reconciliation", "error", err)
		return nil, err
	}

	return reconciliation.BuildView(users, finances), nil
}

// findOptional returns nil without error when the period has no record of kind
func findOptional(ctx context.Context, repo record.Repository, kind shared.RecordKind, key record.Key) (*record.FundingRecord, error) {
	rec, err := repo.FindByKey(ctx, kind, key)
	if errors.Is(err, shared.NotFoundError{}) {
		return nil, nil
	}
	return rec, err
}
