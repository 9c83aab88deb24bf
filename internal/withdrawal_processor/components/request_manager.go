package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// RequestManagerImpl implements the RequestManager interface
type RequestManagerImpl struct {
	requestRepo withdrawal.Repository
	logger      *slog.Logger
}

// NewRequestManager creates a new RequestManagerImpl
func NewRequestManager(requestRepo withdrawal.Repository, logger *slog.Logger) service.RequestManager {
	return &RequestManagerImpl{
		requestRepo: requestRepo,
		logger:      logger,
	}
}

// Decide closes the pending request with the decision's outcome.
// Returns withdrawal.ErrRequestNotPending if it was closed meanwhile.
func (m *RequestManagerImpl) Decide(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision) (*withdrawal.Request, error) {
	requestRepoTx := m.requestRepo.WithTx(tx)

	req, err := requestRepoTx.GetByID(ctx, decision.RequestID)
	if err != nil {
		return nil, err
	}
	if req.RecordID != decision.RecordID {
		return nil, shared.ValidationError{Field: "record_id", Message: "does not match the withdrawal request"}
	}

	switch decision.Outcome {
	case withdrawal.OutcomeApprove:
		err = req.Approve(decision.DecidedBy, decision.Note)
	default:
		err = req.Reject(decision.DecidedBy, decision.Note)
	}
	if err != nil {
		return nil, err
	}

	if err := requestRepoTx.UpdateStatus(ctx, req); err != nil {
		if !errors.Is(err, withdrawal.ErrRequestNotPending) {
			m.logger.Error("Failed to update withdrawal request", "request_id", req.ID.String(), "error", err)
		}
		return nil, err
	}

	m.logger.Info("Withdrawal request decided", "request_id", req.ID.String(), "status", req.Status, "decided_by", req.DecidedBy)
	return req, nil
}
