package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/serenify-journal/internal/models"
)

const entryEventsCollection = "entry_events"

// maxHistoryEvents caps a single History response.
const maxHistoryEvents = 500

// EntryHistory is the MongoDB-backed EventLog.
type EntryHistory struct {
	col *mongo.Collection
}

func NewEntryHistory(db *mongo.Database) *EntryHistory {
	return &EntryHistory{col: db.Collection(entryEventsCollection)}
}

// EnsureIndexes configures indexes for the entry_events collection.
// Called on startup from main after Mongo has connected.
func (h *EntryHistory) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "entry_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_user_entry_created"),
		},
	}

	for _, m := range indexes {
		if _, err := h.col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (h *EntryHistory) Record(ctx context.Context, event models.EntryEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := h.col.InsertOne(ctx, event)
	return err
}

// ListEvents returns the entry's events oldest first.
func (h *EntryHistory) ListEvents(ctx context.Context, userID string, entryID int64) ([]models.EntryEvent, error) {
	filter := bson.M{
		"user_id":  userID,
		"entry_id": entryID,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(maxHistoryEvents)

	cur, err := h.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.EntryEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.EntryEvent{}
	}
	return events, nil
}
