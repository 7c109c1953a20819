package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryEventType names a mutation recorded in an entry's history.
type EntryEventType string

const (
	EntryCreated      EntryEventType = "created"
	EntryUpdated      EntryEventType = "updated"
	EntryDeleted      EntryEventType = "deleted"
	EntryImageAdded   EntryEventType = "image_added"
	EntryImageRemoved EntryEventType = "image_removed"
)

// EntryEvent is stored in MongoDB, one document per mutation.
type EntryEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntryID   int64              `bson:"entry_id" json:"entry_id"`
	UserID    string             `bson:"user_id" json:"-"`
	Type      EntryEventType     `bson:"type" json:"type"`
	Detail    string             `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
