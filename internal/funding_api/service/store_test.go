package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
	"github.com/funding-audit-ledger/internal/platform/locking"
	"github.com/funding-audit-ledger/internal/platform/permission"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory record, request and outbox store whose
// transactions restore a snapshot when fn fails
type memStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]record.FundingRecord
	requests map[uuid.UUID]withdrawal.Request
	messages []outbox.Message
	txCount  int
}

func newMemStore() *memStore {
	return &memStore{
		records:  make(map[uuid.UUID]record.FundingRecord),
		requests: make(map[uuid.UUID]withdrawal.Request),
	}
}

func (s *memStore) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	s.mu.Lock()
	s.txCount++
	records := make(map[uuid.UUID]record.FundingRecord, len(s.records))
	for id, rec := range s.records {
		records[id] = rec
	}
	requests := make(map[uuid.UUID]withdrawal.Request, len(s.requests))
	for id, req := range s.requests {
		requests[id] = req
	}
	messages := append([]outbox.Message(nil), s.messages...)
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.records = records
		s.requests = requests
		s.messages = messages
		s.mu.Unlock()
		return err
	}
	return nil
}

// put stores a copy of rec as is
func (s *memStore) put(rec *record.FundingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *rec
}

func (s *memStore) get(id uuid.UUID) record.FundingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *memStore) outboxEvents() []outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Message(nil), s.messages...)
}

type memRecordRepo struct{ s *memStore }

func (r memRecordRepo) WithTx(pgx.Tx) record.Repository { return r }

func (r memRecordRepo) Create(_ context.Context, rec *record.FundingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.records {
		if existing.Kind == rec.Kind && existing.Period() == rec.Period() {
			return shared.DuplicatePeriodError{Kind: rec.Kind, FundNeedID: rec.FundNeedID, Year: rec.Year, Month: rec.Month}
		}
	}
	r.s.records[rec.ID] = *rec
	return nil
}

func (r memRecordRepo) GetByID(_ context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[id]
	if !ok || rec.Kind != kind {
		return nil, record.NotFound(id)
	}
	return &rec, nil
}

func (r memRecordRepo) FindByKey(_ context.Context, kind shared.RecordKind, key record.Key) (*record.FundingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.records {
		if rec.Kind == kind && rec.Period() == key {
			found := rec
			return &found, nil
		}
	}
	return nil, shared.NotFoundError{Resource: "record", ID: key.FundNeedID.String()}
}

func (r memRecordRepo) FindMany(_ context.Context, filter record.Filter) ([]*record.FundingRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*record.FundingRecord
	for _, rec := range r.s.records {
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.FundNeedID != uuid.Nil && rec.FundNeedID != filter.FundNeedID {
			continue
		}
		if (filter.Year != 0 && rec.Year != filter.Year) || (filter.Month != 0 && rec.Month != filter.Month) {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		found := rec
		out = append(out, &found)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FundNeedID != out[j].FundNeedID {
			return out[i].FundNeedID.String() < out[j].FundNeedID.String()
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memRecordRepo) Update(_ context.Context, rec *record.FundingRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.records[rec.ID]
	if !ok || stored.Version != rec.Version-1 || stored.Status == shared.RecordStatusApproved {
		return shared.ConflictError{RecordID: rec.ID, Attempted: rec.Status, Reason: "record was modified concurrently or is already approved"}
	}
	r.s.records[rec.ID] = *rec
	return nil
}

func (r memRecordRepo) BatchUpdate(ctx context.Context, recs []*record.FundingRecord) error {
	for _, rec := range recs {
		if err := r.Update(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r memRecordRepo) Delete(_ context.Context, kind shared.RecordKind, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[id]
	if !ok || rec.Kind != kind {
		return record.NotFound(id)
	}
	if rec.Status == shared.RecordStatusApproved {
		return shared.ConflictError{RecordID: id, CurrentStatus: rec.Status, Reason: "approved records cannot be deleted"}
	}
	delete(r.s.records, id)
	return nil
}

func (r memRecordRepo) LockForUpdate(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	return r.GetByID(ctx, kind, id)
}

type memRequestRepo struct{ s *memStore }

func (r memRequestRepo) WithTx(pgx.Tx) withdrawal.Repository { return r }

func (r memRequestRepo) Create(_ context.Context, req *withdrawal.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.requests {
		if existing.RecordID == req.RecordID && existing.Status == shared.RequestStatusPending {
			return shared.ConflictError{RecordID: req.RecordID, Reason: "a withdrawal request is already pending"}
		}
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r memRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: "withdrawal request", ID: id.String()}
	}
	return &req, nil
}

func (r memRequestRepo) GetPendingByRecordID(_ context.Context, recordID uuid.UUID) (*withdrawal.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, req := range r.s.requests {
		if req.RecordID == recordID && req.Status == shared.RequestStatusPending {
			found := req
			return &found, nil
		}
	}
	return nil, withdrawal.PendingNotFound(recordID)
}

func (r memRequestRepo) UpdateStatus(_ context.Context, req *withdrawal.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[req.ID]
	if !ok || stored.Status != shared.RequestStatusPending {
		return withdrawal.ErrRequestNotPending
	}
	r.s.requests[req.ID] = *req
	return nil
}

func (r memRequestRepo) List(_ context.Context, status shared.RequestStatus, limit, offset int) ([]*withdrawal.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*withdrawal.Request
	for _, req := range r.s.requests {
		if status == "" || req.Status == status {
			found := req
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memOutboxRepo struct {
	s   *memStore
	err error
}

func (r memOutboxRepo) WithTx(pgx.Tx) outbox.Repository { return r }

func (r memOutboxRepo) Create(_ context.Context, msg *outbox.Message) error {
	if r.err != nil {
		return r.err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg.ID = int64(len(r.s.messages) + 1)
	r.s.messages = append(r.s.messages, *msg)
	return nil
}

func (r memOutboxRepo) GetPending(context.Context, int) ([]*outbox.Message, error) {
	return nil, errors.New("not used")
}

func (r memOutboxRepo) UpdateStatus(context.Context, int64, shared.OutboxStatus) error {
	return errors.New("not used")
}

func (r memOutboxRepo) IncrementAttempts(context.Context, int64) error {
	return errors.New("not used")
}

func (r memOutboxRepo) GetByEventID(context.Context, uuid.UUID) (*outbox.Message, error) {
	return nil, errors.New("not used")
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) CanPerform(ctx context.Context, actor permission.Actor, resource string, action permission.Action, scope string) bool {
	args := m.Called(ctx, actor, resource, action, scope)
	return args.Bool(0)
}

type MockMessagingProducer struct {
	mock.Mock
}

func (m *MockMessagingProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagingProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

// stubLocker refuses periods listed in busy
type stubLocker struct {
	mu       sync.Mutex
	busy     map[string]bool
	obtained []string
	released int
}

func (l *stubLocker) Obtain(_ context.Context, fundNeedID uuid.UUID, year, month int) (locking.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := locking.PeriodKey(fundNeedID, year, month)
	if l.busy[key] {
		return nil, locking.ErrNotObtained
	}
	l.obtained = append(l.obtained, key)
	return stubLock{l}, nil
}

type stubLock struct{ l *stubLocker }

func (s stubLock) Release(context.Context) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	s.l.released++
	return nil
}

var (
	actorReporter = permission.Actor{ID: "reporter-1", Role: permission.RoleReporter}
	actorFinance  = permission.Actor{ID: "finance-1", Role: permission.RoleFinance}
	actorAuditor  = permission.Actor{ID: "auditor-1", Role: permission.RoleAuditor}
	actorAdmin    = permission.Actor{ID: "admin-1", Role: permission.RoleAdmin}
)

// seedRecord stores a record in the given status. An empty amount leaves it null.
func seedRecord(t *testing.T, s *memStore, kind shared.RecordKind, fundNeedID uuid.UUID, year, month int, status shared.RecordStatus, amount string) *record.FundingRecord {
	t.Helper()
	rec, err := record.NewRecord(kind, fundNeedID, year, month)
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
	rec.Status = status
	if amount != "" {
		rec.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	s.put(rec)
	return rec
}
