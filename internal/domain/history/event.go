package history

import (
	"time"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Event records one status transition of a funding record
type Event struct {
	EventID       uuid.UUID           `json:"event_id" bson:"event_id"`
	RecordID      uuid.UUID           `json:"record_id" bson:"record_id"`
	Kind          shared.RecordKind   `json:"kind" bson:"kind"`
	FundNeedID    uuid.UUID           `json:"fund_need_id" bson:"fund_need_id"`
	Year          int                 `json:"year" bson:"year"`
	Month         int                 `json:"month" bson:"month"`
	Trigger       record.Trigger      `json:"trigger" bson:"trigger"`
	FromStatus    shared.RecordStatus `json:"from_status" bson:"from_status"`
	ToStatus      shared.RecordStatus `json:"to_status" bson:"to_status"`
	Amount        string              `json:"amount,omitempty" bson:"amount,omitempty"` // Decimal string
	AuditAmount   string              `json:"audit_amount,omitempty" bson:"audit_amount,omitempty"`
	Actor         string              `json:"actor" bson:"actor"`
	Note          string              `json:"note,omitempty" bson:"note,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at" bson:"occurred_at"`
	RecordedAt    *time.Time          `json:"recorded_at,omitempty" bson:"recorded_at,omitempty"`
}

// NewEvent captures a transition of rec from status from, after rec was mutated
func NewEvent(rec *record.FundingRecord, from shared.RecordStatus, trigger record.Trigger, actor string) *Event {
	e := &Event{
		EventID:    uuid.New(),
		RecordID:   rec.ID,
		Kind:       rec.Kind,
		FundNeedID: rec.FundNeedID,
		Year:       rec.Year,
		Month:      rec.Month,
		Trigger:    trigger,
		FromStatus: from,
		ToStatus:   rec.Status,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
	if rec.Amount.Valid {
		e.Amount = rec.Amount.Decimal.String()
	}
	if rec.AuditAmount.Valid {
		e.AuditAmount = rec.AuditAmount.Decimal.String()
	}
	return e
}
