package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/platform/permission"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

// RecordServiceImpl implements the RecordService interface
type RecordServiceImpl struct {
	db         persistence.TxRunner
	recordRepo record.Repository
	outboxRepo outbox.Repository
	gate       permission.Gate
	logger     *slog.Logger
}

// NewRecordService creates a new record service
func NewRecordService(logger *slog.Logger, db persistence.TxRunner, recordRepo record.Repository, outboxRepo outbox.Repository, gate permission.Gate) RecordService {
	return &RecordServiceImpl{
		db:         db,
		recordRepo: recordRepo,
		outboxRepo: outboxRepo,
		gate:       gate,
		logger:     logger,
	}
}

// SaveDraft creates the record for the input's period if none exists, otherwise
// saves a new draft over it. UNFILLED, DRAFT and WITHDRAWN records accept drafts.
func (s *RecordServiceImpl) SaveDraft(ctx context.Context, actor permission.Actor, input DraftInput) (*record.FundingRecord, error) {
	if !input.Kind.Valid() {
		return nil, shared.ValidationError{Field: "kind", Message: "unknown record kind " + string(input.Kind)}
	}
	if err := record.CheckAmountScale("amount", input.Amount); err != nil {
		return nil, err
	}
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(input.Kind), permission.ActionSave, input.FundNeedID.String()); err != nil {
		return nil, err
	}

	key := record.Key{FundNeedID: input.FundNeedID, Year: input.Year, Month: input.Month}
	var saved *record.FundingRecord

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		recordRepo := s.recordRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		rec, err := recordRepo.FindByKey(ctx, input.Kind, key)
		if err != nil && !errors.Is(err, shared.NotFoundError{}) {
			return err
		}

		if rec == nil {
			rec, err = record.NewRecord(input.Kind, input.FundNeedID, input.Year, input.Month)
			if err != nil {
				return shared.ValidationError{Field: "period", Message: err.Error()}
			}
			from := rec.Status
			if err := rec.Save(input.Amount, input.Remark, actor.ID); err != nil {
				return err
			}
			if err := recordRepo.Create(ctx, rec); err != nil {
				return err
			}
			saved = rec
			return recordTransition(ctx, outboxRepo, rec, from, record.TriggerSave, actor.ID, "")
		}

		rec, err = recordRepo.LockForUpdate(ctx, input.Kind, rec.ID)
		if err != nil {
			return err
		}
		from := rec.Status
		if err := rec.Save(input.Amount, input.Remark, actor.ID); err != nil {
			return err
		}
		if err := recordRepo.Update(ctx, rec); err != nil {
			return err
		}
		saved = rec
		return recordTransition(ctx, outboxRepo, rec, from, record.TriggerSave, actor.ID, "")
	})
	if err != nil {
		s.logger.Warn("Failed to save draft",
			"kind", string(input.Kind),
			"fund_need_id", input.FundNeedID.String(),
			"year", input.Year,
			"month", input.Month,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Draft saved",
		"record_id", saved.ID.String(),
		"kind", string(saved.Kind),
		"version", saved.Version,
	)
	return saved, nil
}

// Submit moves a DRAFT record with an amount to SUBMITTED
func (s *RecordServiceImpl) Submit(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionSubmit, ""); err != nil {
		return nil, err
	}

	var submitted *record.FundingRecord
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		recordRepo := s.recordRepo.WithTx(tx)

		rec, err := recordRepo.LockForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		from := rec.Status
		if err := rec.Submit(actor.ID); err != nil {
			return err
		}
		if err := recordRepo.Update(ctx, rec); err != nil {
			return err
		}
		submitted = rec
		return recordTransition(ctx, s.outboxRepo.WithTx(tx), rec, from, record.TriggerSubmit, actor.ID, "")
	})
	if err != nil {
		s.logger.Warn("Failed to submit record", "record_id", id.String(), "kind", string(kind), "error", err)
		return nil, err
	}

	s.logger.Info("Record submitted", "record_id", id.String(), "kind", string(kind))
	return submitted, nil
}

// Delete removes a record; APPROVED records are refused by the repository
func (s *RecordServiceImpl) Delete(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) error {
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionDelete, ""); err != nil {
		return err
	}

	if err := s.recordRepo.Delete(ctx, kind, id); err != nil {
		s.logger.Warn("Failed to delete record", "record_id", id.String(), "kind", string(kind), "error", err)
		return err
	}

	s.logger.Info("Record deleted", "record_id", id.String(), "kind", string(kind), "actor", actor.ID)
	return nil
}

// Get retrieves a record by its ID
func (s *RecordServiceImpl) Get(ctx context.Context, actor permission.Actor, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(kind), permission.ActionView, ""); err != nil {
		return nil, err
	}
	return s.recordRepo.GetByID(ctx, kind, id)
}

// List retrieves a page of records matching query
func (s *RecordServiceImpl) List(ctx context.Context, actor permission.Actor, query RecordQuery) ([]*record.FundingRecord, error) {
	if !query.Kind.Valid() {
		return nil, shared.ValidationError{Field: "kind", Message: "unknown record kind " + string(query.Kind)}
	}
	scope := ""
	if query.FundNeedID != uuid.Nil {
		scope = query.FundNeedID.String()
	}
	if err := permission.Authorize(ctx, s.gate, actor, permission.RecordResource(query.Kind), permission.ActionView, scope); err != nil {
		return nil, err
	}

	limit, offset := pageBounds(query.Page, query.PerPage)
	records, err := s.recordRepo.FindMany(ctx, record.Filter{
		Kind:       query.Kind,
		FundNeedID: query.FundNeedID,
		Year:       query.Year,
		Month:      query.Month,
		Status:     query.Status,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		s.logger.Error("Failed to list records", "kind", string(query.Kind), "error", err)
		return nil, err
	}
	return records, nil
}
