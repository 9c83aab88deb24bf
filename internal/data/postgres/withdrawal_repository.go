package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

const requestColumns = `id, record_id, module_type, reason, requested_by, requested_at, status,
		decided_by, decided_at, decision_note`

// WithdrawalRepository implements the withdrawal.Repository interface for PostgreSQL
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal request repository
func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new request. The partial unique index on pending requests
// turns a second pending request for the same record into a ConflictError.
func (r *WithdrawalRepository) Create(ctx context.Context, req *withdrawal.Request) error {
	query := `
		INSERT INTO withdrawal_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.RecordID,
		req.ModuleType,
		req.Reason,
		req.RequestedBy,
		req.RequestedAt,
		req.Status,
		req.DecidedBy,
		req.DecidedAt,
		req.DecisionNote,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ConflictError{RecordID: req.RecordID, Reason: "a withdrawal request is already pending"}
		}
		r.logger.Error("Failed to create withdrawal request", "record_id", req.RecordID.String(), "error", err)
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	return nil
}

// GetByID retrieves a request by its ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM withdrawal_requests WHERE id = $1`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "withdrawal request", ID: id.String()}
		}
		r.logger.Error("Failed to get withdrawal request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}

	return req, nil
}

// GetPendingByRecordID returns the single pending request of a record
func (r *WithdrawalRepository) GetPendingByRecordID(ctx context.Context, recordID uuid.UUID) (*withdrawal.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM withdrawal_requests WHERE record_id = $1 AND status = $2`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, recordID, shared.RequestStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.PendingNotFound(recordID)
		}
		r.logger.Error("Failed to get pending withdrawal request", "record_id", recordID.String(), "error", err)
		return nil, fmt.Errorf("failed to get pending withdrawal request: %w", err)
	}

	return req, nil
}

// UpdateStatus persists a decision. Only pending rows are updated, so a
// request cannot be decided twice.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, req *withdrawal.Request) error {
	query := `
		UPDATE withdrawal_requests
		SET status = $1, decided_by = $2, decided_at = $3, decision_note = $4
		WHERE id = $5 AND status = 'pending'
	`

	result, err := r.querier.Exec(ctx, query, req.Status, req.DecidedBy, req.DecidedAt, req.DecisionNote, req.ID)
	if err != nil {
		r.logger.Error("Failed to update withdrawal request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return withdrawal.ErrRequestNotPending
	}

	return nil
}

// List returns requests newest first; an empty status lists all of them
func (r *WithdrawalRepository) List(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*withdrawal.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM withdrawal_requests
		WHERE ($1::text = '' OR status = $1)
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, string(status), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list withdrawal requests", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var reqs []*withdrawal.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			r.logger.Error("Failed to scan withdrawal request", "error", err)
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over withdrawal requests: %w", err)
	}

	return reqs, nil
}

func scanRequest(row pgx.Row) (*withdrawal.Request, error) {
	var req withdrawal.Request
	err := row.Scan(
		&req.ID,
		&req.RecordID,
		&req.ModuleType,
		&req.Reason,
		&req.RequestedBy,
		&req.RequestedAt,
		&req.Status,
		&req.DecidedBy,
		&req.DecidedAt,
		&req.DecisionNote,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
