package withdrawal

import (
	"time"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Outcome is an admin's answer to a withdrawal request
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Decision is the command published to the decision topic and applied by
// the withdrawal processor
type Decision struct {
	RequestID     uuid.UUID         `json:"request_id"`
	RecordID      uuid.UUID         `json:"record_id"`
	ModuleType    shared.ModuleType `json:"module_type"`
	Outcome       Outcome           `json:"outcome"`
	DecidedBy     string            `json:"decided_by"`
	Note          string            `json:"note,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	IssuedAt      time.Time         `json:"issued_at"`
}

// NewDecision builds a decision command for a pending request
func NewDecision(req *Request, outcome Outcome, decidedBy, note string) (*Decision, error) {
	d := &Decision{
		RequestID:  req.ID,
		RecordID:   req.RecordID,
		ModuleType: req.ModuleType,
		Outcome:    outcome,
		DecidedBy:  decidedBy,
		Note:       note,
		IssuedAt:   time.Now().UTC(),
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the fields a processor needs to apply the decision
func (d *Decision) Validate() error {
	if d.RequestID == uuid.Nil {
		return shared.ValidationError{Field: "request_id", Message: "request id is required"}
	}
	if d.RecordID == uuid.Nil {
		return shared.ValidationError{Field: "record_id", Message: "record id is required"}
	}
	if _, ok := shared.ParseModuleType(string(d.ModuleType)); !ok {
		return shared.ValidationError{Field: "module_type", Message: "unknown module type " + string(d.ModuleType)}
	}
	if d.Outcome != OutcomeApprove && d.Outcome != OutcomeReject {
		return shared.ValidationError{Field: "outcome", Message: "outcome must be approve or reject"}
	}
	if d.DecidedBy == "" {
		return shared.ValidationError{Field: "decided_by", Message: "deciding user is required"}
	}
	return nil
}
