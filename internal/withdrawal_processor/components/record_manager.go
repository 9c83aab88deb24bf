package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// RecordManagerImpl implements the RecordManager interface
type RecordManagerImpl struct {
	recordRepo record.Repository
	logger     *slog.Logger
}

// NewRecordManager creates a new RecordManagerImpl
func NewRecordManager(recordRepo record.Repository, logger *slog.Logger) service.RecordManager {
	return &RecordManagerImpl{
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// LockAndApply locks the record and moves it to WITHDRAWN on approval or
// back to SUBMITTED on rejection. It returns the previous status and the
// trigger fired.
func (m *RecordManagerImpl) LockAndApply(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision) (*record.FundingRecord, shared.RecordStatus, record.Trigger, error) {
	logger := m.logger
	if decision.CorrelationID != "" {
		logger = m.logger.With("correlation_id", decision.CorrelationID)
	}

	recordRepoTx := m.recordRepo.WithTx(tx)

	rec, err := recordRepoTx.LockForUpdate(ctx, decision.ModuleType.Kind(), decision.RecordID)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			logger.Warn("Record not found for withdrawal decision", "record_id", decision.RecordID.String())
			return nil, "", "", err
		}
		logger.Error("Failed to lock record", "record_id", decision.RecordID.String(), "error", err)
		return nil, "", "", fmt.Errorf("failed to lock record %s: %w", decision.RecordID, err)
	}

	from := rec.Status
	var trigger record.Trigger
	switch decision.Outcome {
	case withdrawal.OutcomeApprove:
		trigger = record.TriggerApproveWithdrawal
		err = rec.ApproveWithdrawal()
	default:
		trigger = record.TriggerRejectWithdrawal
		err = rec.RejectWithdrawal()
	}
	if err != nil {
		logger.Warn("Record is not awaiting withdrawal", "record_id", rec.ID.String(), "status", from, "error", err)
		return nil, "", "", err
	}

	if err := recordRepoTx.Update(ctx, rec); err != nil {
		logger.Error("Failed to update record", "record_id", rec.ID.String(), "error", err)
		return nil, "", "", err
	}

	logger.Info("Record withdrawal decided", "record_id", rec.ID.String(), "from", from, "to", rec.Status, "ver", rec.Version)
	return rec, from, trigger, nil
}
