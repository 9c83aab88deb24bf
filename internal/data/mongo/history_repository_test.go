package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/funding-audit-ledger/internal/domain/history"
	"github.com/funding-audit-ledger/internal/domain/record"
	"github.com/funding-audit-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sampleEvent() *history.Event {
	return &history.Event{
		EventID:    uuid.New(),
		RecordID:   uuid.New(),
		Kind:       shared.RecordKindActualFinance,
		FundNeedID: uuid.New(),
		Year:       2024,
		Month:      6,
		Trigger:    record.TriggerAuditApprove,
		FromStatus: shared.RecordStatusSubmitted,
		ToStatus:   shared.RecordStatusApproved,
		Amount:     "100.00",
		Actor:      "auditor-1",
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func eventDoc(t *testing.T, event *history.Event) bson.D {
	t.Helper()
	raw, err := bson.Marshal(event)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestHistoryRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("success", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(t, repo.Create(context.Background(), sampleEvent()))
	})

	mt.Run("duplicate event", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		event := sampleEvent()
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), event)
		assert.ErrorIs(t, err, history.ErrDuplicateEvent{EventID: event.EventID})
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))

		err := repo.Create(context.Background(), sampleEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create history event")
	})
}

func TestHistoryRepository_GetByEventID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "funding_audit." + HistoryCollectionName

	mt.Run("found", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		event := sampleEvent()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, eventDoc(t, event)))

		got, err := repo.GetByEventID(context.Background(), event.EventID)
		require.NoError(t, err)
		assert.Equal(t, event.EventID, got.EventID)
		assert.Equal(t, event.RecordID, got.RecordID)
		assert.Equal(t, shared.RecordStatusApproved, got.ToStatus)
		assert.Equal(t, "100.00", got.Amount)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		id := uuid.New()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByEventID(context.Background(), id)
		assert.ErrorIs(t, err, history.ErrEventNotFound{EventID: id})
	})
}

func TestHistoryRepository_ListByRecordID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "funding_audit." + HistoryCollectionName

	mt.Run("returns events in order", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)

		saved := sampleEvent()
		saved.Trigger = record.TriggerSave
		saved.FromStatus = shared.RecordStatusUnfilled
		saved.ToStatus = shared.RecordStatusDraft

		submitted := sampleEvent()
		submitted.RecordID = saved.RecordID
		submitted.Trigger = record.TriggerSubmit
		submitted.FromStatus = shared.RecordStatusDraft
		submitted.ToStatus = shared.RecordStatusSubmitted

		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, eventDoc(t, saved))
		second := mtest.CreateCursorResponse(1, ns, mtest.NextBatch, eventDoc(t, submitted))
		killCursors := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, second, killCursors)

		events, err := repo.ListByRecordID(context.Background(), saved.RecordID, 50, 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, record.TriggerSave, events[0].Trigger)
		assert.Equal(t, record.TriggerSubmit, events[1].Trigger)
	})
}

func TestHistoryRepository_CountByRecordID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "funding_audit." + HistoryCollectionName

	mt.Run("count", func(mt *mtest.T) {
		repo := NewHistoryRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		count, err := repo.CountByRecordID(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

var _ history.Repository = (*HistoryRepository)(nil)
