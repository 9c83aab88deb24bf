package record

import (
	"errors"
	"fmt"
	"time"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidKind   = errors.New("unknown record kind")
	ErrInvalidPeriod = errors.New("period must have a year and a month between 1 and 12")
	ErrNilFundNeed   = errors.New("fund need id cannot be empty")
)

// FundingRecord is a monthly funding figure for one fund need. Predicted,
// ActualUser and ActualFinance records share this shape and lifecycle.
type FundingRecord struct {
	ID          uuid.UUID           `json:"id"`
	Kind        shared.RecordKind   `json:"kind"`
	FundNeedID  uuid.UUID           `json:"fund_need_id"`
	Year        int                 `json:"year"`
	Month       int                 `json:"month"`
	Amount      decimal.NullDecimal `json:"amount"`
	Status      shared.RecordStatus `json:"status"`
	Remark      string              `json:"remark"`
	AuditAmount decimal.NullDecimal `json:"audit_amount"`
	AuditRemark *string             `json:"audit_remark,omitempty"`
	SubmittedBy string              `json:"submitted_by,omitempty"`
	SubmittedAt *time.Time          `json:"submitted_at,omitempty"`
	Version     int                 `json:"version"` // For optimistic locking
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewRecord creates an unfilled record for the given fund need and period
func NewRecord(kind shared.RecordKind, fundNeedID uuid.UUID, year, month int) (*FundingRecord, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if fundNeedID == uuid.Nil {
		return nil, ErrNilFundNeed
	}
	if year < 1 || month < 1 || month > 12 {
		return nil, ErrInvalidPeriod
	}

	now := time.Now()
	return &FundingRecord{
		ID:         uuid.New(),
		Kind:       kind,
		FundNeedID: fundNeedID,
		Year:       year,
		Month:      month,
		Status:     shared.RecordStatusUnfilled,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AmountScale is the number of decimal places amounts are stored with
const AmountScale = 2

// CheckAmountScale rejects amounts with more decimal places than the store
// keeps, so a persisted figure never differs from the one compared in memory.
func CheckAmountScale(field string, amount decimal.NullDecimal) error {
	if amount.Valid && !amount.Decimal.Equal(amount.Decimal.Truncate(AmountScale)) {
		return shared.ValidationError{Field: field, Message: fmt.Sprintf("at most %d decimal places allowed, got %s", AmountScale, amount.Decimal.String())}
	}
	return nil
}

// Save stores a draft amount and remark. The amount may be null.
func (r *FundingRecord) Save(amount decimal.NullDecimal, remark string, actor string) error {
	if err := CheckAmountScale("amount", amount); err != nil {
		return err
	}
	if err := r.fire(TriggerSave); err != nil {
		return err
	}
	r.Amount = amount
	r.Remark = remark
	r.stamp(actor)
	return nil
}

// Submit hands the draft to reconciliation; the amount must be present
func (r *FundingRecord) Submit(actor string) error {
	if _, ok := Next(r.Status, TriggerSubmit); ok && !r.Amount.Valid {
		return shared.ValidationError{Field: "amount", Message: "amount is required before submitting"}
	}
	if err := r.fire(TriggerSubmit); err != nil {
		return err
	}
	r.stamp(actor)
	return nil
}

// RequestWithdrawal parks a submitted record until the request is decided
func (r *FundingRecord) RequestWithdrawal() error {
	return r.fire(TriggerRequestWithdrawal)
}

// CancelWithdrawal returns a pending record to SUBMITTED at the requester's will
func (r *FundingRecord) CancelWithdrawal() error {
	return r.fire(TriggerCancelWithdrawal)
}

// ApproveWithdrawal releases the record for editing
func (r *FundingRecord) ApproveWithdrawal() error {
	return r.fire(TriggerApproveWithdrawal)
}

// RejectWithdrawal returns a pending record to SUBMITTED after an admin refusal
func (r *FundingRecord) RejectWithdrawal() error {
	return r.fire(TriggerRejectWithdrawal)
}

// Approve commits an audit decision and freezes the record
func (r *FundingRecord) Approve(auditAmount decimal.Decimal, auditRemark *string, actor string) error {
	if err := r.fire(TriggerAuditApprove); err != nil {
		return err
	}
	r.AuditAmount = decimal.NewNullDecimal(auditAmount)
	r.AuditRemark = auditRemark
	r.stamp(actor)
	return nil
}

// Reject closes the record without an audited amount
func (r *FundingRecord) Reject(auditRemark *string, actor string) error {
	if err := r.fire(TriggerAuditReject); err != nil {
		return err
	}
	r.AuditRemark = auditRemark
	r.stamp(actor)
	return nil
}

// SetAuditDraft records an in-progress audit decision without changing status
func (r *FundingRecord) SetAuditDraft(amount decimal.NullDecimal, remark *string) error {
	if !DraftEditable(r.Status) {
		return shared.ConflictError{RecordID: r.ID, CurrentStatus: r.Status, Reason: "audit decision is already final"}
	}
	r.AuditAmount = amount
	r.AuditRemark = remark
	r.touch()
	return nil
}

// Period returns the record's fund need/year/month key
func (r *FundingRecord) Period() Key {
	return Key{FundNeedID: r.FundNeedID, Year: r.Year, Month: r.Month}
}

func (r *FundingRecord) fire(trigger Trigger) error {
	next, ok := Next(r.Status, trigger)
	if !ok {
		return shared.ConflictError{RecordID: r.ID, CurrentStatus: r.Status, Attempted: targetStatus[trigger]}
	}
	r.Status = next
	r.touch()
	return nil
}

func (r *FundingRecord) stamp(actor string) {
	now := time.Now()
	r.SubmittedBy = actor
	r.SubmittedAt = &now
}

func (r *FundingRecord) touch() {
	r.UpdatedAt = time.Now()
	r.Version++
}

// Key identifies a record period within one kind
type Key struct {
	FundNeedID uuid.UUID `json:"fund_need_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
}
