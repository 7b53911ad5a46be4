package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoKVDoc represents one scoped key-value entry in MongoDB. The value
// is always written whole, so a reader never observes a partial update.
type MongoKVDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Scope     string             `bson:"scope"`
	Key       string             `bson:"key"`
	Value     string             `bson:"value"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}
