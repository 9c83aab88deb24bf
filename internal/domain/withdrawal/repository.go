package withdrawal

import (
	"context"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages withdrawal request persistence
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// GetPendingByRecordID returns shared.NotFoundError when the record has no pending request
	GetPendingByRecordID(ctx context.Context, recordID uuid.UUID) (*Request, error)
	UpdateStatus(ctx context.Context, req *Request) error
	List(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*Request, error)
	WithTx(tx pgx.Tx) Repository
}

// PolicyRepository reads the admin-maintained policy table
type PolicyRepository interface {
	PolicySource
	List(ctx context.Context) ([]Policy, error)
}

// PendingNotFound builds the error returned when no pending request exists
func PendingNotFound(recordID uuid.UUID) error {
	return shared.NotFoundError{Resource: "pending withdrawal request", ID: recordID.String()}
}
