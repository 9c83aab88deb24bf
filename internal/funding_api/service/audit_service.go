package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/reconciliation"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/platform/locking"
	"github.com/funding-audit-ledger/internal/platform/permission"
	"github.com/funding-audit-ledger/internal/platform/persistence"
)

// AuditServiceImpl implements the AuditService interface
type AuditServiceImpl struct {
	db         persistence.TxRunner
	recordRepo record.Repository
	outboxRepo outbox.Repository
	locker     locking.PeriodLocker
	gate       permission.Gate
	logger     *slog.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(logger *slog.Logger, db persistence.TxRunner, recordRepo record.Repository, outboxRepo outbox.Repository, locker locking.PeriodLocker, gate permission.Gate) AuditService {
	return &AuditServiceImpl{
		db:         db,
		recordRepo: recordRepo,
		outboxRepo: outboxRepo,
		locker:     locker,
		gate:       gate,
		logger:     logger,
	}
}

// period is one reconciliation row together with its backing records
type period struct {
	row     reconciliation.Row
	user    *record.FundingRecord
	finance *record.FundingRecord
}

// ProposeDecision parses an auditor's entry for a row
func (s *AuditServiceImpl) ProposeDecision(ctx context.Context, actor permission.Actor, entry DecisionEntry) (reconciliation.Decision, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceReconciliation, permission.ActionAudit, ""); err != nil {
		return reconciliation.Decision{}, err
	}
	key, err := reconciliation.ParseRowID(entry.RowID)
	if err != nil {
		return reconciliation.Decision{}, err
	}
	return reconciliation.ProposeDecision(reconciliation.RowID(key), entry.Value, entry.Remark)
}

// ValidateForSubmit runs the submit checks against current stored state
func (s *AuditServiceImpl) ValidateForSubmit(ctx context.Context, actor permission.Actor, selection AuditSelection) error {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceReconciliation, permission.ActionAudit, ""); err != nil {
		return err
	}
	decisions, err := parseDecisions(selection.Decisions)
	if err != nil {
		return err
	}
	rowIDs, err := canonicalRowIDs(selection.RowIDs)
	if err != nil {
		return err
	}
	_, rows, err := s.loadPeriods(ctx, s.recordRepo, rowIDs, false)
	if err != nil {
		return err
	}
	return reconciliation.ValidateForSubmit(rows, rowIDs, decisions)
}

// CommitDraft stores the entries on their finance records. Status is left
// untouched; records with a final audit refuse the draft.
func (s *AuditServiceImpl) CommitDraft(ctx context.Context, actor permission.Actor, entries []DecisionEntry) (int, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceReconciliation, permission.ActionAudit, ""); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, shared.ValidationError{Field: "decisions", Message: "no decisions given"}
	}
	decisions, err := parseDecisions(entries)
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(decisions))
	for id := range decisions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		recordRepo := s.recordRepo.WithTx(tx)

		var drafts []*record.FundingRecord
		for _, id := range ids {
			key, err := reconciliation.ParseRowID(id)
			if err != nil {
				return err
			}
			finance, err := findOptional(ctx, recordRepo, shared.RecordKindActualFinance, key)
			if err != nil {
				return err
			}
			if finance == nil {
				return shared.ValidationError{Field: "row_id", Message: "row has no finance record: " + id}
			}
			finance, err = recordRepo.LockForUpdate(ctx, shared.RecordKindActualFinance, finance.ID)
			if err != nil {
				return err
			}
			d := decisions[id]
			if err := finance.SetAuditDraft(d.Amount, d.Remark); err != nil {
				return err
			}
			drafts = append(drafts, finance)
		}
		return recordRepo.BatchUpdate(ctx, drafts)
	})
	if err != nil {
		s.logger.Warn("Failed to commit audit draft", "rows", len(ids), "error", err)
		return 0, err
	}

	s.logger.Info("Audit draft committed", "rows", len(ids), "actor", actor.ID)
	return len(ids), nil
}

// SubmitAudit approves the selected rows
func (s *AuditServiceImpl) SubmitAudit(ctx context.Context, actor permission.Actor, selection AuditSelection) (*BatchResult, error) {
	return s.commit(ctx, actor, selection, record.TriggerAuditApprove)
}

// RejectAudit rejects the selected rows
func (s *AuditServiceImpl) RejectAudit(ctx context.Context, actor permission.Actor, selection AuditSelection) (*BatchResult, error) {
	return s.commit(ctx, actor, selection, record.TriggerAuditReject)
}

// commit applies trigger to every record behind the selected rows in a
// single transaction. Any failure rolls the whole batch back.
func (s *AuditServiceImpl) commit(ctx context.Context, actor permission.Actor, selection AuditSelection, trigger record.Trigger) (*BatchResult, error) {
	if err := permission.Authorize(ctx, s.gate, actor, permission.ResourceReconciliation, permission.ActionAudit, ""); err != nil {
		return nil, err
	}
	decisions, err := parseDecisions(selection.Decisions)
	if err != nil {
		return nil, err
	}
	rowIDs, err := canonicalRowIDs(selection.RowIDs)
	if err != nil {
		return nil, err
	}
	keys, err := selectionKeys(rowIDs)
	if err != nil {
		return nil, err
	}

	release, err := s.lockPeriods(ctx, keys)
	if err != nil {
		return nil, err
	}
	defer release()

	result := &BatchResult{}
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		recordRepo := s.recordRepo.WithTx(tx)
		outboxRepo := s.outboxRepo.WithTx(tx)

		periods, rows, err := s.loadPeriods(ctx, recordRepo, rowIDs, true)
		if err != nil {
			return err
		}
		if trigger == record.TriggerAuditApprove {
			err = reconciliation.ValidateForSubmit(rows, rowIDs, decisions)
		} else {
			err = checkSelection(rows, rowIDs)
		}
		if err != nil {
			return err
		}

		var changed []*record.FundingRecord
		var from []shared.RecordStatus
		for _, id := range rowIDs {
			p := periods[id]
			remark := auditRemark(p.row, decisions, selection.Remark)
			for _, rec := range []*record.FundingRecord{p.finance, p.user} {
				if rec == nil {
					continue
				}
				prev := rec.Status
				if trigger == record.TriggerAuditApprove {
					err = rec.Approve(reconciliation.Resolve(p.row, decisions).Decimal, remark, actor.ID)
				} else {
					err = rec.Reject(remark, actor.ID)
				}
				if err != nil {
					return err
				}
				changed = append(changed, rec)
				from = append(from, prev)
			}
		}

		if err := recordRepo.BatchUpdate(ctx, changed); err != nil {
			return err
		}
		for i, rec := range changed {
			if err := recordTransition(ctx, outboxRepo, rec, from[i], trigger, actor.ID, ""); err != nil {
				return err
			}
		}

		result.Rows = len(rowIDs)
		result.Records = changed
		return nil
	})
	if err != nil {
		s.logger.Warn("Audit batch rejected",
			"trigger", string(trigger),
			"rows", len(rowIDs),
			"actor", actor.ID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Audit batch committed",
		"trigger", string(trigger),
		"rows", result.Rows,
		"records", len(result.Records),
		"actor", actor.ID,
	)
	return result, nil
}

// loadPeriods reads the records behind each distinct row id. Rows without any
// record are left out so validation reports them as unknown.
func (s *AuditServiceImpl) loadPeriods(ctx context.Context, recordRepo record.Repository, rowIDs []string, lock bool) (map[string]*period, []reconciliation.Row, error) {
	periods := make(map[string]*period, len(rowIDs))
	rows := make([]reconciliation.Row, 0, len(rowIDs))

	for _, id := range rowIDs {
		if _, seen := periods[id]; seen {
			continue
		}
		key, err := reconciliation.ParseRowID(id)
		if err != nil {
			return nil, nil, err
		}

		p := &period{}
		if p.user, err = findOptional(ctx, recordRepo, shared.RecordKindActualUser, key); err != nil {
			return nil, nil, err
		}
		if p.finance, err = findOptional(ctx, recordRepo, shared.RecordKindActualFinance, key); err != nil {
			return nil, nil, err
		}
		if p.user == nil && p.finance == nil {
			continue
		}
		if lock {
			if p.user != nil {
				if p.user, err = recordRepo.LockForUpdate(ctx, shared.RecordKindActualUser, p.user.ID); err != nil {
					return nil, nil, err
				}
			}
			if p.finance != nil {
				if p.finance, err = recordRepo.LockForUpdate(ctx, shared.RecordKindActualFinance, p.finance.ID); err != nil {
					return nil, nil, err
				}
			}
		}

		p.row = reconciliation.Build(key, p.user, p.finance)
		periods[id] = p
		rows = append(rows, p.row)
	}
	return periods, rows, nil
}

// lockPeriods takes the period locks in a stable order. The returned func
// releases every lock taken.
func (s *AuditServiceImpl) lockPeriods(ctx context.Context, keys []record.Key) (func(), error) {
	var held []locking.Lock
	release := func() {
		for _, lock := range held {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release period lock", "error", err)
			}
		}
	}

	for _, key := range keys {
		lock, err := s.locker.Obtain(ctx, key.FundNeedID, key.Year, key.Month)
		if err != nil {
			release()
			if errors.Is(err, locking.ErrNotObtained) {
				return nil, shared.ConflictError{Reason: "period " + reconciliation.RowID(key) + " is being audited by another user"}
			}
			return nil, fmt.Errorf("failed to lock period %s: %w", reconciliation.RowID(key), err)
		}
		held = append(held, lock)
	}
	return release, nil
}

// parseDecisions parses entries into decisions keyed by row id
func parseDecisions(entries []DecisionEntry) (map[string]reconciliation.Decision, error) {
	decisions := make(map[string]reconciliation.Decision, len(entries))
	for _, entry := range entries {
		key, err := reconciliation.ParseRowID(entry.RowID)
		if err != nil {
			return nil, err
		}
		d, err := reconciliation.ProposeDecision(reconciliation.RowID(key), entry.Value, entry.Remark)
		if err != nil {
			return nil, err
		}
		decisions[d.RowID] = d
	}
	return decisions, nil
}

// canonicalRowIDs rewrites row ids in the form produced by reconciliation.RowID
func canonicalRowIDs(rowIDs []string) ([]string, error) {
	ids := make([]string, len(rowIDs))
	for i, id := range rowIDs {
		key, err := reconciliation.ParseRowID(id)
		if err != nil {
			return nil, err
		}
		ids[i] = reconciliation.RowID(key)
	}
	return ids, nil
}

// selectionKeys parses the selected row ids into distinct period keys sorted by row id
func selectionKeys(rowIDs []string) ([]record.Key, error) {
	if len(rowIDs) == 0 {
		return nil, shared.ValidationError{Field: "selection", Message: "no rows selected"}
	}
	ids := append([]string(nil), rowIDs...)
	sort.Strings(ids)

	keys := make([]record.Key, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		key, err := reconciliation.ParseRowID(id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// checkSelection applies the selection rules of ValidateForSubmit without
// requiring decisions
func checkSelection(rows []reconciliation.Row, selected []string) error {
	byID := make(map[string]reconciliation.Row, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			return shared.ValidationError{Field: "selection", Message: "row selected twice: " + id}
		}
		seen[id] = struct{}{}
		row, ok := byID[id]
		if !ok {
			return shared.NotFoundError{Resource: "reconciliation row", ID: id}
		}
		if !row.HasFinanceRecord {
			return shared.ValidationError{Field: "selection", Message: "row has no finance record and is not auditable: " + id}
		}
	}
	return nil
}

// auditRemark picks the row's decision remark, then the batch remark, then
// the remark stored with a draft
func auditRemark(row reconciliation.Row, decisions map[string]reconciliation.Decision, batch *string) *string {
	if d, ok := decisions[row.ID]; ok && d.Remark != nil {
		return d.Remark
	}
	if batch != nil {
		return batch
	}
	return row.AuditRemark
}
