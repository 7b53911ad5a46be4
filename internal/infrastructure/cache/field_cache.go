package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

// RedisFieldCache implements FieldCache on Redis. Entries carry no TTL:
// the reconciler clears the cache at the start of every operation, so
// definitions stay fixed within one operation and fresh across them.
type RedisFieldCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisFieldCache creates a new Redis-backed field cache.
func NewRedisFieldCache(client *redis.Client, logger zerolog.Logger) *RedisFieldCache {
	return &RedisFieldCache{
		client: client,
		logger: logger.With().Str("service", "field_cache").Logger(),
	}
}

func fieldKey(entity domain.EntityType) string {
	return "fielddefs:" + string(entity)
}

// Get returns the cached definitions for an entity type, if present.
func (c *RedisFieldCache) Get(ctx context.Context, entity domain.EntityType) ([]domain.FieldDefinition, bool, error) {
	raw, err := c.client.Get(ctx, fieldKey(entity)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read field cache: %w", err)
	}

	var defs []domain.FieldDefinition
	if err := json.Unmarshal([]byte(raw), &defs); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached field definitions: %w", err)
	}
	return defs, true, nil
}

// Put stores the definitions for an entity type without expiry.
func (c *RedisFieldCache) Put(ctx context.Context, entity domain.EntityType, defs []domain.FieldDefinition) error {
	data, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("failed to encode field definitions: %w", err)
	}
	if err := c.client.Set(ctx, fieldKey(entity), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write field cache: %w", err)
	}
	return nil
}

// Clear removes every entity's cached definitions.
func (c *RedisFieldCache) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(domain.AllEntityTypes()))
	for _, entity := range domain.AllEntityTypes() {
		keys = append(keys, fieldKey(entity))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear field cache: %w", err)
	}
	return nil
}

var _ ports.FieldCache = (*RedisFieldCache)(nil)
