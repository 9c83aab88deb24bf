package withdrawal

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultMinReasonLength is the shortest accepted withdrawal reason
const DefaultMinReasonLength = 5

var ErrRequestNotPending = errors.New("withdrawal request is no longer pending")

// Request asks for a submitted record to be reverted to an editable state
type Request struct {
	ID           uuid.UUID            `json:"id"`
	RecordID     uuid.UUID            `json:"record_id"`
	ModuleType   shared.ModuleType    `json:"module_type"`
	Reason       string               `json:"reason"`
	RequestedBy  string               `json:"requested_by"`
	RequestedAt  time.Time            `json:"requested_at"`
	Status       shared.RequestStatus `json:"request_status"`
	DecidedBy    string               `json:"decided_by,omitempty"`
	DecidedAt    *time.Time           `json:"decided_at,omitempty"`
	DecisionNote string               `json:"decision_note,omitempty"`
}

// NewRequest validates the reason and creates a pending request
func NewRequest(recordID uuid.UUID, moduleType shared.ModuleType, reason, requestedBy string, minReasonLength int) (*Request, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < minReasonLength {
		return nil, shared.ValidationError{Field: "reason", Message: "reason is too short"}
	}

	return &Request{
		ID:          uuid.New(),
		RecordID:    recordID,
		ModuleType:  moduleType,
		Reason:      reason,
		RequestedBy: requestedBy,
		RequestedAt: time.Now(),
		Status:      shared.RequestStatusPending,
	}, nil
}

// Cancel withdraws the request on behalf of its requester
func (r *Request) Cancel(by string) error {
	return r.decide(shared.RequestStatusCancelled, by, "")
}

// Approve accepts the request
func (r *Request) Approve(by, note string) error {
	return r.decide(shared.RequestStatusApproved, by, note)
}

// Reject refuses the request
func (r *Request) Reject(by, note string) error {
	return r.decide(shared.RequestStatusRejected, by, note)
}

func (r *Request) decide(status shared.RequestStatus, by, note string) error {
	if r.Status != shared.RequestStatusPending {
		return ErrRequestNotPending
	}
	now := time.Now()
	r.Status = status
	r.DecidedBy = by
	r.DecidedAt = &now
	r.DecisionNote = note
	return nil
}
