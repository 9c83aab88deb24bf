package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/withdrawal_processor/service"
)

// DecisionValidatorImpl implements the DecisionValidator interface
type DecisionValidatorImpl struct {
	requestRepo withdrawal.Repository
	logger      *slog.Logger
}

// NewDecisionValidator creates a new DecisionValidatorImpl
func NewDecisionValidator(requestRepo withdrawal.Repository, logger *slog.Logger) service.DecisionValidator {
	return &DecisionValidatorImpl{
		requestRepo: requestRepo,
		logger:      logger,
	}
}

// Validate checks the decision payload
func (v *DecisionValidatorImpl) Validate(_ context.Context, decision *withdrawal.Decision) error {
	return decision.Validate()
}

// CheckIdempotency reports whether the request was already decided.
// A missing request is left to the transaction, which parks the decision.
func (v *DecisionValidatorImpl) CheckIdempotency(ctx context.Context, decision *withdrawal.Decision) (bool, error) {
	req, err := v.requestRepo.GetByID(ctx, decision.RequestID)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			return false, nil
		}
		v.logger.Error("Failed to check withdrawal request status",
			"request_id", decision.RequestID.String(),
			"error", err,
		)
		return false, fmt.Errorf("failed to check withdrawal request %s: %w", decision.RequestID, err)
	}

	if req.Status != shared.RequestStatusPending {
		v.logger.Info("Withdrawal request already decided, skipping",
			"request_id", decision.RequestID.String(),
			"status", req.Status,
		)
		return true, nil
	}
	return false, nil
}
