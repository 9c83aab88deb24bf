package record

import (
	"context"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows FindMany results; zero fields are ignored
type Filter struct {
	Kind       shared.RecordKind
	FundNeedID uuid.UUID
	Year       int
	Month      int
	Status     shared.RecordStatus
	Limit      int
	Offset     int
}

// Repository defines funding record persistence operations. One
// implementation serves all three kinds, keyed by FundingRecord.Kind.
type Repository interface {
	// Create returns shared.DuplicatePeriodError when the kind already has a record for the period
	Create(ctx context.Context, rec *FundingRecord) error
	GetByID(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*FundingRecord, error)
	FindByKey(ctx context.Context, kind shared.RecordKind, key Key) (*FundingRecord, error)
	FindMany(ctx context.Context, filter Filter) ([]*FundingRecord, error)

	// Update uses optimistic locking and refuses rows already APPROVED
	Update(ctx context.Context, rec *FundingRecord) error
	// BatchUpdate applies Update to every record; callers bind it to a transaction
	BatchUpdate(ctx context.Context, recs []*FundingRecord) error
	// Delete refuses rows already APPROVED
	Delete(ctx context.Context, kind shared.RecordKind, id uuid.UUID) error

	// LockForUpdate acquires a row lock for the rest of the transaction
	LockForUpdate(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*FundingRecord, error)
	WithTx(tx pgx.Tx) Repository
}

// NotFound builds the error returned for a missing record
func NotFound(id uuid.UUID) error {
	return shared.NotFoundError{Resource: "record", ID: id.String()}
}
