package outbox_poller

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/outbox"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func (m *MockOutboxRepo) WithTx(pgx.Tx) outbox.Repository {
	return m
}

type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) Create(ctx context.Context, event *history.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockHistoryRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*history.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Event), args.Error(1)
}

func (m *MockHistoryRepo) ListByRecordID(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*history.Event, error) {
	args := m.Called(ctx, recordID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Event), args.Error(1)
}

func (m *MockHistoryRepo) CountByRecordID(ctx context.Context, recordID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recordID)
	return args.Get(0).(int64), args.Error(1)
}

type MockHistoryPublisher struct {
	mock.Mock
}

func (m *MockHistoryPublisher) PublishToHistory(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func newOutboxMessage(t *testing.T, id int64) *outbox.Message {
	t.Helper()
	rec := &record.FundingRecord{
		ID:         uuid.New(),
		Kind:       shared.RecordKindActualUser,
		FundNeedID: uuid.New(),
		Year:       2024,
		Month:      6,
		Status:     shared.RecordStatusSubmitted,
	}
	event := history.NewEvent(rec, shared.RecordStatusDraft, record.TriggerSubmit, "reporter-1")
	event.CorrelationID = "corr-3"
	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = id
	msg.CreatedAt = time.Now()
	return msg
}
