package shared

import "strings"

// RecordKind identifies which of the three parallel record tables a record lives in
type RecordKind string

const (
	RecordKindPredicted     RecordKind = "PREDICTED"
	RecordKindActualUser    RecordKind = "ACTUAL_USER"
	RecordKindActualFinance RecordKind = "ACTUAL_FINANCE"
)

// Valid reports whether k is one of the known record kinds
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindPredicted, RecordKindActualUser, RecordKindActualFinance:
		return true
	}
	return false
}

// ParseRecordKind accepts the kind in any letter case
func ParseRecordKind(s string) (RecordKind, bool) {
	k := RecordKind(strings.ToUpper(strings.TrimSpace(s)))
	return k, k.Valid()
}

// RecordStatus defines funding record lifecycle states
type RecordStatus string

const (
	RecordStatusUnfilled          RecordStatus = "UNFILLED"
	RecordStatusDraft             RecordStatus = "DRAFT"
	RecordStatusSubmitted         RecordStatus = "SUBMITTED"
	RecordStatusPendingWithdrawal RecordStatus = "PENDING_WITHDRAWAL"
	RecordStatusApproved          RecordStatus = "APPROVED"
	RecordStatusRejected          RecordStatus = "REJECTED"
	RecordStatusWithdrawn         RecordStatus = "WITHDRAWN"
)

// ParseRecordStatus accepts the status in any letter case
func ParseRecordStatus(s string) (RecordStatus, bool) {
	st := RecordStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case RecordStatusUnfilled, RecordStatusDraft, RecordStatusSubmitted, RecordStatusPendingWithdrawal,
		RecordStatusApproved, RecordStatusRejected, RecordStatusWithdrawn:
		return st, true
	}
	return st, false
}

// ModuleType names the workflow area a withdrawal policy applies to
type ModuleType string

const (
	ModuleTypePredicted ModuleType = "predicted"
	ModuleTypeActual    ModuleType = "actual"
	ModuleTypeFinance   ModuleType = "finance"
)

// ParseModuleType normalizes a module type name
func ParseModuleType(s string) (ModuleType, bool) {
	m := ModuleType(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModuleTypePredicted, ModuleTypeActual, ModuleTypeFinance:
		return m, true
	}
	return m, false
}

// Kind maps a module type to the record table it governs
func (m ModuleType) Kind() RecordKind {
	switch m {
	case ModuleTypePredicted:
		return RecordKindPredicted
	case ModuleTypeFinance:
		return RecordKindActualFinance
	default:
		return RecordKindActualUser
	}
}

// RequestStatus defines withdrawal request states
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
