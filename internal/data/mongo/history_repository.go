// Package mongo stores the record transition history read model in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/funding-audit-ledger/internal/domain/history"
)

const (
	// HistoryCollectionName is the name of the history collection in MongoDB
	HistoryCollectionName = "record_history"
)

// HistoryRepository implements the history.Repository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB history repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index the idempotent Create relies
// on, plus the per-record timeline index.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "record_id", Value: 1}, {Key: "occurred_at", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	return nil
}

// Create stores a history event. A replayed event is reported as
// ErrDuplicateEvent so the publisher can treat it as delivered.
func (r *HistoryRepository) Create(ctx context.Context, event *history.Event) error {
	collection := r.db.Collection(HistoryCollectionName)

	_, err := collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return history.ErrDuplicateEvent{EventID: event.EventID}
		}
		r.logger.Error("Failed to create history event",
			"event_id", event.EventID.String(),
			"record_id", event.RecordID.String(),
			"error", err)
		return fmt.Errorf("failed to create history event: %w", err)
	}

	return nil
}

// GetByEventID retrieves a single event
func (r *HistoryRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*history.Event, error) {
	collection := r.db.Collection(HistoryCollectionName)

	var event history.Event
	err := collection.FindOne(ctx, bson.M{"event_id": eventID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, history.ErrEventNotFound{EventID: eventID}
		}
		r.logger.Error("Failed to get history event",
			"event_id", eventID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get history event: %w", err)
	}

	return &event, nil
}

// ListByRecordID returns a record's transitions oldest first
func (r *HistoryRepository) ListByRecordID(ctx context.Context, recordID uuid.UUID, limit, offset int) ([]*history.Event, error) {
	collection := r.db.Collection(HistoryCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"record_id": recordID}, opts)
	if err != nil {
		r.logger.Error("Failed to list history events",
			"record_id", recordID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list history events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*history.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode history events",
			"record_id", recordID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode history events: %w", err)
	}

	return events, nil
}

// CountByRecordID counts a record's transitions
func (r *HistoryRepository) CountByRecordID(ctx context.Context, recordID uuid.UUID) (int64, error) {
	collection := r.db.Collection(HistoryCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"record_id": recordID})
	if err != nil {
		r.logger.Error("Failed to count history events",
			"record_id", recordID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count history events: %w", err)
	}

	return count, nil
}
