package record

import "github.com/funding-audit-ledger/internal/domain/shared"

// Trigger names the operation that drives a status transition
type Trigger string

const (
	TriggerSave              Trigger = "save"
	TriggerSubmit            Trigger = "submit"
	TriggerRequestWithdrawal Trigger = "request_withdrawal"
	TriggerCancelWithdrawal  Trigger = "cancel_withdrawal"
	TriggerApproveWithdrawal Trigger = "approve_withdrawal"
	TriggerRejectWithdrawal  Trigger = "reject_withdrawal"
	TriggerAuditApprove      Trigger = "audit_approve"
	TriggerAuditReject       Trigger = "audit_reject"
)

type edge struct {
	from    shared.RecordStatus
	trigger Trigger
}

// transitions is the complete set of legal lifecycle edges. A WITHDRAWN
// record is editable again and its next save starts a fresh draft.
var transitions = map[edge]shared.RecordStatus{
	{shared.RecordStatusUnfilled, TriggerSave}:                       shared.RecordStatusDraft,
	{shared.RecordStatusDraft, TriggerSave}:                          shared.RecordStatusDraft,
	{shared.RecordStatusWithdrawn, TriggerSave}:                      shared.RecordStatusDraft,
	{shared.RecordStatusDraft, TriggerSubmit}:                        shared.RecordStatusSubmitted,
	{shared.RecordStatusSubmitted, TriggerRequestWithdrawal}:         shared.RecordStatusPendingWithdrawal,
	{shared.RecordStatusPendingWithdrawal, TriggerCancelWithdrawal}:  shared.RecordStatusSubmitted,
	{shared.RecordStatusPendingWithdrawal, TriggerRejectWithdrawal}:  shared.RecordStatusSubmitted,
	{shared.RecordStatusPendingWithdrawal, TriggerApproveWithdrawal}: shared.RecordStatusWithdrawn,
	{shared.RecordStatusSubmitted, TriggerAuditApprove}:              shared.RecordStatusApproved,
	{shared.RecordStatusSubmitted, TriggerAuditReject}:               shared.RecordStatusRejected,
}

// targetStatus is the status a trigger aims for regardless of origin, used to
// describe rejected transitions.
var targetStatus = map[Trigger]shared.RecordStatus{
	TriggerSave:              shared.RecordStatusDraft,
	TriggerSubmit:            shared.RecordStatusSubmitted,
	TriggerRequestWithdrawal: shared.RecordStatusPendingWithdrawal,
	TriggerCancelWithdrawal:  shared.RecordStatusSubmitted,
	TriggerRejectWithdrawal:  shared.RecordStatusSubmitted,
	TriggerApproveWithdrawal: shared.RecordStatusWithdrawn,
	TriggerAuditApprove:      shared.RecordStatusApproved,
	TriggerAuditReject:       shared.RecordStatusRejected,
}

// Next returns the status reached by firing trigger from status
func Next(from shared.RecordStatus, trigger Trigger) (shared.RecordStatus, bool) {
	to, ok := transitions[edge{from, trigger}]
	return to, ok
}

// CanTransition reports whether any trigger moves a record from one status to another
func CanTransition(from, to shared.RecordStatus) bool {
	for e, target := range transitions {
		if e.from == from && target == to {
			return true
		}
	}
	return false
}

// AuditEligible reports whether a record in status can take an audit decision
func AuditEligible(status shared.RecordStatus) bool {
	_, ok := Next(status, TriggerAuditApprove)
	return ok
}

// DraftEditable reports whether audit decisions may still be saved against a record
func DraftEditable(status shared.RecordStatus) bool {
	switch status {
	case shared.RecordStatusUnfilled, shared.RecordStatusDraft, shared.RecordStatusSubmitted:
		return true
	}
	return false
}
