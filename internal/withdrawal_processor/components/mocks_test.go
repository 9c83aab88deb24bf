package components

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
	"github.com/funding-audit-ledger/internal/domain/withdrawal"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockRecordRepo struct {
	mock.Mock
}

func (m *MockRecordRepo) Create(ctx context.Context, rec *record.FundingRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordRepo) GetByID(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordRepo) FindByKey(ctx context.Context, kind shared.RecordKind, key record.Key) (*record.FundingRecord, error) {
	args := m.Called(ctx, kind, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordRepo) FindMany(ctx context.Context, filter record.Filter) ([]*record.FundingRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.FundingRecord), args.Error(1)
}

func (m *MockRecordRepo) Update(ctx context.Context, rec *record.FundingRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordRepo) BatchUpdate(ctx context.Context, recs []*record.FundingRecord) error {
	return m.Called(ctx, recs).Error(0)
}

func (m *MockRecordRepo) Delete(ctx context.Context, kind shared.RecordKind, id uuid.UUID) error {
	return m.Called(ctx, kind, id).Error(0)
}

func (m *MockRecordRepo) LockForUpdate(ctx context.Context, kind shared.RecordKind, id uuid.UUID) (*record.FundingRecord, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.FundingRecord), args.Error(1)
}

func (m *MockRecordRepo) WithTx(tx pgx.Tx) record.Repository {
	m.Called(tx)
	return m
}

type MockRequestRepo struct {
	mock.Mock
}

func (m *MockRequestRepo) Create(ctx context.Context, req *withdrawal.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockRequestRepo) GetPendingByRecordID(ctx context.Context, recordID uuid.UUID) (*withdrawal.Request, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*withdrawal.Request), args.Error(1)
}

func (m *MockRequestRepo) UpdateStatus(ctx context.Context, req *withdrawal.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepo) List(ctx context.Context, status shared.RequestStatus, limit, offset int) ([]*withdrawal.Request, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*withdrawal.Request), args.Error(1)
}

func (m *MockRequestRepo) WithTx(tx pgx.Tx) withdrawal.Repository {
	m.Called(tx)
	return m
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

type MockDLQ struct {
	mock.Mock
}

func (m *MockDLQ) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	return m.Called(ctx, key, originalMessageValue, reason).Error(0)
}

func (m *MockDLQ) Close() error {
	return m.Called().Error(0)
}

func pendingDecision(outcome withdrawal.Outcome) *withdrawal.Decision {
	return &withdrawal.Decision{
		RequestID:     uuid.New(),
		RecordID:      uuid.New(),
		ModuleType:    shared.ModuleTypeFinance,
		Outcome:       outcome,
		DecidedBy:     "admin-1",
		Note:          "confirmed with finance",
		CorrelationID: "corr-7",
	}
}
