package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/logger"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	db              persistence.TxRunner
	validator       DecisionValidator
	recordManager   RecordManager
	requestManager  RequestManager
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	db persistence.TxRunner,
	validator DecisionValidator,
	recordManager RecordManager,
	requestManager RequestManager,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		db:              db,
		validator:       validator,
		recordManager:   recordManager,
		requestManager:  requestManager,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ApplyDecision approves or rejects a pending withdrawal request. Decisions
// that can never succeed are parked and acknowledged; store failures are
// returned so the consumer retries.
func (s *ProcessingServiceImpl) ApplyDecision(ctx context.Context, decision *withdrawal.Decision) error {
	log := s.logger
	if decision.CorrelationID != "" {
		log = s.logger.With("correlation_id", decision.CorrelationID)
		ctx = logger.WithCorrelationID(ctx, decision.CorrelationID)
	}

	log.Info("Applying withdrawal decision",
		"request_id", decision.RequestID.String(),
		"record_id", decision.RecordID.String(),
		"outcome", decision.Outcome,
	)

	// 1. Validate the decision
	if err := s.validator.Validate(ctx, decision); err != nil {
		log.Warn("Withdrawal decision failed validation", "request_id", decision.RequestID.String(), "error", err)
		s.recordFailure(ctx, log, decision, err)
		return nil
	}

	// 2. Skip redelivered decisions
	done, err := s.validator.CheckIdempotency(ctx, decision)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	// 3. Record first, then request, matching the cancel path's lock order
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		rec, from, trigger, err := s.recordManager.LockAndApply(ctx, tx, decision)
		if err != nil {
			return err
		}
		if _, err := s.requestManager.Decide(ctx, tx, decision); err != nil {
			return err
		}
		return s.outboxManager.CreateOutboxEntry(ctx, tx, decision, rec, from, trigger)
	})
	if err == nil {
		log.Info("Withdrawal decision applied", "request_id", decision.RequestID.String(), "outcome", decision.Outcome)
		return nil
	}

	if errors.Is(err, withdrawal.ErrRequestNotPending) {
		log.Info("Withdrawal request already closed, skipping decision", "request_id", decision.RequestID.String())
		return nil
	}
	if errors.Is(err, shared.NotFoundError{}) || errors.Is(err, shared.ConflictError{}) || errors.Is(err, shared.ValidationError{}) {
		log.Warn("Withdrawal decision cannot be applied", "request_id", decision.RequestID.String(), "error", err)
		s.recordFailure(ctx, log, decision, err)
		return nil
	}

	log.Error("Failed to apply withdrawal decision", "request_id", decision.RequestID.String(), "error", err)
	return err
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, log *slog.Logger, decision *withdrawal.Decision, cause error) {
	if err := s.failureRecorder.RecordFailure(ctx, decision, cause.Error()); err != nil {
		log.Error("Failed to record withdrawal decision failure", "request_id", decision.RequestID.String(), "error", err)
	}
}
