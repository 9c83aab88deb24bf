package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
)

// ProcessingService applies admin withdrawal decisions consumed from Kafka.
type ProcessingService interface {
	ApplyDecision(ctx context.Context, decision *withdrawal.Decision) error
}

// DecisionValidator validates decisions before any row is locked
type DecisionValidator interface {
	Validate(ctx context.Context, decision *withdrawal.Decision) error
	// CheckIdempotency reports whether the request was already decided
	CheckIdempotency(ctx context.Context, decision *withdrawal.Decision) (bool, error)
}

// RecordManager moves the record out of PENDING_WITHDRAWAL
type RecordManager interface {
	LockAndApply(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision) (*record.FundingRecord, shared.RecordStatus, record.Trigger, error)
}

// RequestManager closes the pending withdrawal request
type RequestManager interface {
	Decide(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision) (*withdrawal.Request, error)
}

// OutboxManager writes the history event of the applied decision
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, decision *withdrawal.Decision, rec *record.FundingRecord, from shared.RecordStatus, trigger record.Trigger) error
}

// FailureRecorder parks decisions that can never be applied
type FailureRecorder interface {
	RecordFailure(ctx context.Context, decision *withdrawal.Decision, failureReason string) error
}
