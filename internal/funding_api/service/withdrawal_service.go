package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/logger"
	"github.com/funding-audit-ledger/internal/platform/messaging/producers"
	"github.com/funding-audit-ledger/internal/platform/permission"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

// WithdrawalServiceImpl implements the WithdrawalService interface
type WithdrawalServiceImpl struct {
	db              persistence.TxRunner
	recordRepo      record.Repository
	requestRepo     withdrawal.Repository
	outboxRepo      outbox.Repository
	policies        withdrawal.PolicyRepository
	producer        producers.MessagePublisher
	gate            permission.Gate
	minReasonLength int
	logger          *slog.Logger
}

// NewWithdrawalService creates a new withdrawal service. Policies are read
// from policies on every request.
func NewWithdrawalService(
	logger *slog.Logger,
	db persistence.TxRunner,
	recordRepo record.Repository,
	requestRepo withdrawal.Repository,
	outboxRepo outbox.Repository,
	policies withdrawal.PolicyRepository,
	producer producers.MessagePublisher,
	gate permission.Gate,
	minReasonLength int,
) WithdrawalService {
	if minReasonLength <= 0 {
		minReasonLength = withdrawal.DefaultMinReasonLength
	}
	return &WithdrawalServiceImpl{
		db:              db,
		recordRepo:      recordRepo,
		requestRepo:     requestRepo,
		outboxRepo:      outboxRepo,
		policies:        policies,
		producer:        producer,
		gate:            gate,
		minReasonLength: minReasonLength,
		logger:          logger,
	}
}

// RequestWithdrawal checks the reason, the record and the module policy, then
// creates a pending request and parks the record in PENDING_WITHDRAWAL
func (s *WithdrawalServiceImpl) RequestWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID, moduleType string, reason string) (*withdrawal.Request, error) {
	module, ok := shared.ParseModuleType(moduleType)
	if !ok {
		return nil, shared.ValidationError{Field: "module_type", Message: "unknown module type " + moduleType}
	}
	kind := module.Kind()
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionWithdraw, ""); err != nil {
		return nil, err
	}

	req, err := withdrawal.NewRequest(recordID, module, reason, actor.ID, s.minReasonLength)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		recordRepo := s.recordRepo.WithTx(tx)

		rec, err := recordRepo.LockForUpdate(ctx, kind, recordID)
		if err != nil {
			return err
		}

		policy, err := s.policies.Policy(ctx, module)
		if err != nil {
			return fmt.Errorf("failed to read withdrawal policy for %s: %w", module, err)
		}
		if !policy.Allows(rec.Status) {
			return shared.InvalidStateError{RecordID: rec.ID, ModuleType: module, CurrentStatus: rec.Status}
		}

		from := rec.Status
		if err := rec.RequestWithdrawal(); err != nil {
			return err
		}
		if err := recordRepo.Update(ctx, rec); err != nil {
			return err
		}
		if err := s.requestRepo.WithTx(tx).Create(ctx, req); err != nil {
			return err
		}
		return recordTransition(ctx, s.outboxRepo.WithTx(tx), rec, from, record.TriggerRequestWithdrawal, actor.ID, req.Reason)
	})
	if err != nil {
		s.logger.Warn("Withdrawal request refused",
			"record_id", recordID.String(),
			"module_type", string(module),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Withdrawal requested",
		"request_id", req.ID.String(),
		"record_id", recordID.String(),
		"module_type", string(module),
	)
	return req, nil
}

// CancelWithdrawal cancels the record's pending request and returns the record
// to SUBMITTED. A second cancel finds no pending request.
func (s *WithdrawalServiceImpl) CancelWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID) (*withdrawal.Request, error) {
	// The request's module decides which record kind the gate checks
	pending, err := s.requestRepo.GetPendingByRecordID(ctx, recordID)
	if err != nil {
		s.logger.Warn("Withdrawal cancel refused", "record_id", recordID.String(), "error", err)
		return nil, err
	}
	kind := pending.ModuleType.Kind()
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionWithdraw, ""); err != nil {
		return nil, err
	}

	var cancelled *withdrawal.Request

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		requestRepo := s.requestRepo.WithTx(tx)
		recordRepo := s.recordRepo.WithTx(tx)

		req, err := requestRepo.GetPendingByRecordID(ctx, recordID)
		if err != nil {
			return err
		}
		if req.ModuleType.Kind() != kind {
			return shared.ConflictError{RecordID: recordID, Reason: "withdrawal request changed while cancelling"}
		}

		rec, err := recordRepo.LockForUpdate(ctx, kind, recordID)
		if err != nil {
			return err
		}
		from := rec.Status
		if err := rec.CancelWithdrawal(); err != nil {
			return err
		}
		if err := req.Cancel(actor.ID); err != nil {
			return withdrawal.PendingNotFound(recordID)
		}
		if err := requestRepo.UpdateStatus(ctx, req); err != nil {
			if errors.Is(err, withdrawal.ErrRequestNotPending) {
				return withdrawal.PendingNotFound(recordID)
			}
			return err
		}
		if err := recordRepo.Update(ctx, rec); err != nil {
			return err
		}
		cancelled = req
		return recordTransition(ctx, s.outboxRepo.WithTx(tx), rec, from, record.TriggerCancelWithdrawal, actor.ID, "")
	})
	if err != nil {
		s.logger.Warn("Withdrawal cancel refused", "record_id", recordID.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Withdrawal cancelled", "request_id", cancelled.ID.String(), "record_id", recordID.String())
	return cancelled, nil
}

// Decide publishes an approve or reject command for a pending request. The
// withdrawal processor applies it.
func (s *WithdrawalServiceImpl) Decide(ctx context.Context, actor permission.Actor, requestID uuid.UUID, outcome withdrawal.Outcome, note string) (*withdrawal.Decision, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceWithdrawal, permission.ActionDecide, ""); err != nil {
		return nil, err
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != shared.RequestStatusPending {
		return nil, shared.ConflictError{RecordID: req.RecordID, Reason: "withdrawal request is " + string(req.Status)}
	}

	decision, err := withdrawal.NewDecision(req, outcome, actor.ID, note)
	if err != nil {
		return nil, err
	}
	decision.CorrelationID = logger.CorrelationID(ctx)

	if err := s.producer.Publish(ctx, req.RecordID.String(), decision); err != nil {
		s.logger.Error("Failed to publish withdrawal decision",
			"request_id", requestID.String(),
			"outcome", string(outcome),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Withdrawal decision published",
		"request_id", requestID.String(),
		"record_id", req.RecordID.String(),
		"outcome", string(outcome),
	)
	return decision, nil
}

// List retrieves a page of withdrawal requests. An empty status lists all.
func (s *WithdrawalServiceImpl) List(ctx context.Context, actor permission.Actor, status string, page, perPage int) ([]*withdrawal.Request, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceWithdrawal, permission.ActionView, ""); err != nil {
		return nil, err
	}

	reqStatus := shared.RequestStatus(strings.ToLower(strings.TrimSpace(status)))
	switch reqStatus {
	case "", shared.RequestStatusPending, shared.RequestStatusApproved, shared.RequestStatusRejected, shared.RequestStatusCancelled:
	default:
		return nil, shared.ValidationError{Field: "status", Message: "unknown request status " + status}
	}

	limit, offset := pageBounds(page, perPage)
	return s.requestRepo.List(ctx, reqStatus, limit, offset)
}

// Policies returns the withdrawal policy of every module
func (s *WithdrawalServiceImpl) Policies(ctx context.Context, actor permission.Actor) ([]withdrawal.Policy, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceWithdrawal, permission.ActionView, ""); err != nil {
		return nil, err
	}
	return s.policies.List(ctx)
}
