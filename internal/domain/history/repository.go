package history

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores the transition history projected from the outbox
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Event, error)
	ListByRecordID(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByRecordID(ctx context.Context, recordID uuid.UUID) (int64, error)
}

// ErrEventNotFound indicates missing history event
type ErrEventNotFound struct {
	EventID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "history event not found: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrEventNotFound
func (e ErrEventNotFound) Is(target error) bool {
	t, ok := target.(ErrEventNotFound)
	if !ok {
		return false
	}
	return t.EventID == uuid.Nil || e.EventID == t.EventID
}

// ErrDuplicateEvent indicates event uniqueness violation
type ErrDuplicateEvent struct {
	EventID uuid.UUID
}

func (e ErrDuplicateEvent) Error() string {
	return "duplicate history event: " + e.EventID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEvent
func (e ErrDuplicateEvent) Is(target error) bool {
	t, ok := target.(ErrDuplicateEvent)
	if !ok {
		return false
	}
	return t.EventID == uuid.Nil || e.EventID == t.EventID
}
