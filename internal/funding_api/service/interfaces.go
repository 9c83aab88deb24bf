package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/reconciliation"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/permission"
)

// DraftInput carries the fields of a record draft
type DraftInput struct {
	Kind       shared.RecordKind
	FundNeedID uuid.UUID
	Year       int
	Month      int
	Amount     decimal.NullDecimal
	Remark     string
}

// RecordQuery filters record listings. Page starts at 1.
type RecordQuery struct {
	Kind       shared.RecordKind
	FundNeedID uuid.UUID
	Year       int
	Month      int
	Status     shared.RecordStatus
	Page       int
	PerPage    int
}

// ViewQuery narrows the reconciliation view; zero fields are ignored
type ViewQuery struct {
	FundNeedID uuid.UUID
	Year       int
	Month      int
}

// DecisionEntry is a raw audit entry typed by an auditor
type DecisionEntry struct {
	RowID  string
	Value  string
	Remark *string
}

// AuditSelection is a batch of reconciliation rows to commit
type AuditSelection struct {
	RowIDs    []string
	Decisions []DecisionEntry
	// Remark applies to rows whose decision carries none
	Remark *string
}

// BatchResult reports the records moved by a batch audit
type BatchResult struct {
	Rows    int                     `json:"rows"`
	Records []*record.FundingRecord `json:"records"`
}

// RecordService defines the interface for funding record operations
type RecordService interface {
	// SaveDraft creates the record for the key or updates its draft
	// Returns shared.ConflictError if the record is not editable
	SaveDraft(ctx context.Context, actor permission.Actor, input DraftInput) (*record.FundingRecord, error)

	// Submit hands a draft over to reconciliation
	Submit(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error)

	// Delete removes a record that is not APPROVED
	Delete(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) error

	// Get retrieves a record by its ID
	// Returns shared.NotFoundError if the record doesn't exist
	Get(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error)

	// List retrieves a page of records of one kind
	List(ctx context.Context, actor permission.Actor, query RecordQuery) ([]*record.FundingRecord, error)
}

// ReconciliationService builds the user/finance comparison view
type ReconciliationService interface {
	View(ctx context.Context, actor permission.Actor, query ViewQuery) ([]reconciliation.Row, error)
}

// AuditService defines the audit decision and batch commit operations
type AuditService interface {
	// ProposeDecision parses a raw entry without persisting it
	ProposeDecision(ctx context.Context, actor permission.Actor, entry DecisionEntry) (reconciliation.Decision, error)

	// ValidateForSubmit reports whether a selection could be committed as is
	// Returns shared.IncompleteDecisionError listing rows that still need a decision
	ValidateForSubmit(ctx context.Context, actor permission.Actor, selection AuditSelection) error

	// CommitDraft stores decisions on the finance records without changing status
	// Returns the number of records updated
	CommitDraft(ctx context.Context, actor permission.Actor, entries []DecisionEntry) (int, error)

	// SubmitAudit approves every selected row in one transaction or none at all
	SubmitAudit(ctx context.Context, actor permission.Actor, selection AuditSelection) (*BatchResult, error)

	// RejectAudit rejects every selected row in one transaction or none at all
	RejectAudit(ctx context.Context, actor permission.Actor, selection AuditSelection) (*BatchResult, error)
}

// WithdrawalService defines the withdrawal request workflow
type WithdrawalService interface {
	// RequestWithdrawal parks a submitted record until an admin decides
	// Returns shared.InvalidStateError when the module policy does not allow the record's status
	RequestWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID, moduleType string, reason string) (*withdrawal.Request, error)

	// CancelWithdrawal returns the record to SUBMITTED
	// Returns shared.NotFoundError when the record has no pending request
	CancelWithdrawal(ctx context.Context, actor permission.Actor, recordID uuid.UUID) (*withdrawal.Request, error)

	// Decide publishes an admin decision for the withdrawal processor
	Decide(ctx context.Context, actor permission.Actor, requestID uuid.UUID, outcome withdrawal.Outcome, note string) (*withdrawal.Decision, error)

	// List retrieves a page of requests, optionally filtered by status
	List(ctx context.Context, actor permission.Actor, status string, page, perPage int) ([]*withdrawal.Request, error)

	// Policies returns the current withdrawal policies
	Policies(ctx context.Context, actor permission.Actor) ([]withdrawal.Policy, error)
}

// HistoryService reads the status transition trail of a record
type HistoryService interface {
	// RecordHistory returns events oldest first, total count of events, and any error
	RecordHistory(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID, page, perPage int) ([]*history.Event, int64, error)
}
