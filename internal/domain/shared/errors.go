package shared

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NotFoundError indicates a missing record or pending withdrawal request
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return e.Resource + " not found: " + e.ID
}

// Is matches any NotFoundError when the target carries no resource name
func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	if t.Resource == "" {
		return true
	}
	return t.Resource == e.Resource && (t.ID == "" || t.ID == e.ID)
}

// ConflictError indicates a transition that is not legal from the record's current status
type ConflictError struct {
	RecordID      uuid.UUID
	CurrentStatus RecordStatus
	Attempted     RecordStatus
	Reason        string
}

func (e ConflictError) Error() string {
	msg := "conflict"
	if e.RecordID != uuid.Nil {
		msg = "record " + e.RecordID.String()
	}
	if e.CurrentStatus != "" {
		msg += " is " + string(e.CurrentStatus)
	}
	if e.Attempted != "" {
		msg += fmt.Sprintf(", cannot move to %s", e.Attempted)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e ConflictError) Is(target error) bool {
	t, ok := target.(ConflictError)
	if !ok {
		return false
	}
	return t.RecordID == uuid.Nil || t.RecordID == e.RecordID
}

// InvalidStateError indicates a withdrawal request against a status the module policy does not allow
type InvalidStateError struct {
	RecordID      uuid.UUID
	ModuleType    ModuleType
	CurrentStatus RecordStatus
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("record %s in status %s is not withdrawable under %s policy", e.RecordID, e.CurrentStatus, e.ModuleType)
}

func (e InvalidStateError) Is(target error) bool {
	_, ok := target.(InvalidStateError)
	return ok
}

// ValidationError indicates malformed caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return "validation failed on " + e.Field + ": " + e.Message
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	return ok
}

// IncompleteDecisionError lists selected rows that still need an audit decision
type IncompleteDecisionError struct {
	RowIDs []string
}

func (e IncompleteDecisionError) Error() string {
	return "audit decision missing for rows: " + strings.Join(e.RowIDs, ", ")
}

func (e IncompleteDecisionError) Is(target error) bool {
	_, ok := target.(IncompleteDecisionError)
	return ok
}

// PermissionDeniedError is returned when the permission gate refuses an action
type PermissionDeniedError struct {
	UserID   string
	Resource string
	Action   string
}

func (e PermissionDeniedError) Error() string {
	return fmt.Sprintf("user %q may not %s %s", e.UserID, e.Action, e.Resource)
}

func (e PermissionDeniedError) Is(target error) bool {
	_, ok := target.(PermissionDeniedError)
	return ok
}

// DuplicatePeriodError indicates a second record for the same fund need and period
type DuplicatePeriodError struct {
	Kind       RecordKind
	FundNeedID uuid.UUID
	Year       int
	Month      int
}

func (e DuplicatePeriodError) Error() string {
	return fmt.Sprintf("%s record already exists for fund need %s in %04d-%02d", e.Kind, e.FundNeedID, e.Year, e.Month)
}

func (e DuplicatePeriodError) Is(target error) bool {
	_, ok := target.(DuplicatePeriodError)
	return ok
}
