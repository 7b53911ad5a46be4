package repository

import (
	"context"
	"fmt"
	"time"

	"sheetsync-core-pipedrive-layer/internal/infrastructure/repository/entity"
	"sheetsync-core-pipedrive-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoKVRepository implements KVStore using MongoDB. Entries are keyed by
// (scope, key); writes replace the whole document via upsert so concurrent
// readers see either the old or the new value, never a mix.
type MongoKVRepository struct {
	collection *mongo.Collection
}

// NewMongoKVRepository creates a new MongoDB key-value repository.
func NewMongoKVRepository(db *mongo.Database) ports.KVStore {
	return &MongoKVRepository{
		collection: db.Collection("kv_entries"),
	}
}

// Get retrieves a value by scope and key.
func (r *MongoKVRepository) Get(ctx context.Context, scope ports.KVScope, key string) (string, bool, error) {
	var doc entity.MongoKVDoc
	err := r.collection.FindOne(ctx, bson.M{"scope": string(scope), "key": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get kv entry: %w", err)
	}
	return doc.Value, true, nil
}

// Set stores a value, replacing any prior entry under the same scope and
// key.
func (r *MongoKVRepository) Set(ctx context.Context, scope ports.KVScope, key string, value string) error {
	doc := entity.MongoKVDoc{
		Scope:     string(scope),
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"scope": string(scope), "key": key},
		doc,
		opts,
	)
	if err != nil {
		return fmt.Errorf("failed to set kv entry: %w", err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing entry is not an error.
func (r *MongoKVRepository) Delete(ctx context.Context, scope ports.KVScope, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"scope": string(scope), "key": key})
	if err != nil {
		return fmt.Errorf("failed to delete kv entry: %w", err)
	}
	return nil
}
