// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a transaction with WithTx so that services
// can compose several writes into one atomic unit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

const uniqueViolation = "23505"

// recordTables maps each record kind to its table. All three tables share one layout.
var recordTables = map[shared.RecordKind]string{
	shared.RecordKindPredicted:     "predicted_funding",
	shared.RecordKindActualUser:    "actual_user_funding",
	shared.RecordKindActualFinance: "actual_finance_funding",
}

const recordColumns = `id, fund_need_id, year, month, amount, status, remark, audit_amount, audit_remark,
		submitted_by, submitted_at, version, created_at, updated_at`

// RecordRepository implements the record.Repository interface for PostgreSQL
type RecordRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewRecordRepository creates a new PostgreSQL record repository
func NewRecordRepository(logger *slog.Logger, db *persistence.PostgresDB) record.Repository {
	return &RecordRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *RecordRepository) WithTx(tx pgx.Tx) record.Repository {
	return &RecordRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func tableFor(kind shared.RecordKind) (string, error) {
	table, ok := recordTables[kind]
	if !ok {
		return "", shared.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown record kind %q", kind)}
	}
	return table, nil
}

// Create inserts a new record. A second record for the same kind and period
// is reported as shared.DuplicatePeriodError.
func (r *RecordRepository) Create(ctx context.Context, rec *record.FundingRecord) error {
	table, err := tableFor(rec.Kind)
	if err != nil {
		return err
	}

	query := `INSERT INTO ` + table + ` (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.querier.Exec(ctx, query,
		rec.ID,
		rec.FundNeedID,
		rec.Year,
		rec.Month,
		rec.Amount,
		rec.Status,
		rec.Remark,
		rec.AuditAmount,
		rec.AuditRemark,
		rec.SubmittedBy,
		rec.SubmittedAt,
		rec.Version,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.DuplicatePeriodError{Kind: rec.Kind, FundNeedID: rec.FundNeedID, Year: rec.Year, Month: rec.Month}
		}
		r.logger.Error("Failed to create record", "kind", rec.Kind, "id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to create record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by its ID
func (r *RecordRepository) GetByID(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE id = $1`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.NotFound(id)
		}
		r.logger.Error("Failed to get record", "kind", kind, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// FindByKey retrieves the record of the given kind for a period
func (r *RecordRepository) FindByKey(ctx context.Context, kind shared.RecordKind, key record.Key) (*record.FundingRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + recordColumns + ` FROM ` + table + `
		WHERE fund_need_id = $1 AND year = $2 AND month = $3`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, key.FundNeedID, key.Year, key.Month), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{
				Resource: "record",
				ID:       fmt.Sprintf("%s:%04d:%02d", key.FundNeedID, key.Year, key.Month),
			}
		}
		r.logger.Error("Failed to find record by period", "kind", kind, "fund_need_id", key.FundNeedID.String(), "error", err)
		return nil, fmt.Errorf("failed to find record by period: %w", err)
	}

	return rec, nil
}

// FindMany lists records matching filter, ordered by fund need and period
func (r *RecordRepository) FindMany(ctx context.Context, filter record.Filter) ([]*record.FundingRecord, error) {
	table, err := tableFor(filter.Kind)
	if err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.FundNeedID != uuid.Nil {
		add("fund_need_id = $%d", filter.FundNeedID)
	}
	if filter.Year > 0 {
		add("year = $%d", filter.Year)
	}
	if filter.Month > 0 {
		add("month = $%d", filter.Month)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + recordColumns + ` FROM ` + table)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY fund_need_id, year, month")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	rows, err := r.querier.Query(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("Failed to list records", "kind", filter.Kind, "error", err)
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var recs []*record.FundingRecord
	for rows.Next() {
		rec, err := scanRecord(rows, filter.Kind)
		if err != nil {
			r.logger.Error("Failed to scan record", "kind", filter.Kind, "error", err)
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over records", "error", err)
		return nil, fmt.Errorf("error iterating over records: %w", err)
	}

	return recs, nil
}

// Update writes rec using optimistic locking on Version. Rows that are
// already APPROVED never match, so they cannot be overwritten.
func (r *RecordRepository) Update(ctx context.Context, rec *record.FundingRecord) error {
	table, err := tableFor(rec.Kind)
	if err != nil {
		return err
	}

	query := `UPDATE ` + table + `
		SET amount = $1, status = $2, remark = $3, audit_amount = $4, audit_remark = $5,
			submitted_by = $6, submitted_at = $7, version = $8, updated_at = $9
		WHERE id = $10 AND version = $11 AND status <> 'APPROVED'`

	result, err := r.querier.Exec(ctx, query,
		rec.Amount,
		rec.Status,
		rec.Remark,
		rec.AuditAmount,
		rec.AuditRemark,
		rec.SubmittedBy,
		rec.SubmittedAt,
		rec.Version,
		rec.UpdatedAt,
		rec.ID,
		rec.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update record", "kind", rec.Kind, "id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to update record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ConflictError{
			RecordID:  rec.ID,
			Attempted: rec.Status,
			Reason:    "record was modified concurrently or is already approved",
		}
	}

	return nil
}

// BatchUpdate updates every record in order and stops at the first failure.
// Bind the repository to a transaction to make the batch atomic.
func (r *RecordRepository) BatchUpdate(ctx context.Context, recs []*record.FundingRecord) error {
	for _, rec := range recs {
		if err := r.Update(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a record unless it is APPROVED
func (r *RecordRepository) Delete(ctx context.Context, kind shared.RecordKind, id uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := `DELETE FROM ` + table + ` WHERE id = $1 AND status <> 'APPROVED'`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete record", "kind", kind, "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete record: %w", err)
	}

	if result.RowsAffected() == 0 {
		var status shared.RecordStatus
		err := r.querier.QueryRow(ctx, `SELECT status FROM `+table+` WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return record.NotFound(id)
		}
		if err != nil {
			return fmt.Errorf("failed to check record status: %w", err)
		}
		return shared.ConflictError{RecordID: id, CurrentStatus: status, Reason: "approved records cannot be deleted"}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the record and returns its current state.
// This should be used within a transaction when strong consistency is required.
func (r *RecordRepository) LockForUpdate(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + recordColumns + ` FROM ` + table + ` WHERE id = $1 FOR UPDATE`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, record.NotFound(id)
		}
		r.logger.Error("Failed to lock record for update", "kind", kind, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock record for update: %w", err)
	}

	return rec, nil
}

func scanRecord(row pgx.Row, kind shared.RecordKind) (*record.FundingRecord, error) {
	rec := record.FundingRecord{Kind: kind}
	err := row.Scan(
		&rec.ID,
		&rec.FundNeedID,
		&rec.Year,
		&rec.Month,
		&rec.Amount,
		&rec.Status,
		&rec.Remark,
		&rec.AuditAmount,
		&rec.AuditRemark,
		&rec.SubmittedBy,
		&rec.SubmittedAt,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
