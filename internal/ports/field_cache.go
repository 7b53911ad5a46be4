package ports

import (
	"context"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// FieldCache defines the interface for caching remote field definitions.
// Entries have no TTL; the cache is cleared explicitly at the start of an
// operation, so stale entries are only ever observed within one logical
// operation.
type FieldCache interface {
	Get(ctx context.Context, entity domain.EntityType) ([]domain.FieldDefinition, bool, error)
	Put(ctx context.Context, entity domain.EntityType, defs []domain.FieldDefinition) error
	Clear(ctx context.Context) error
}
