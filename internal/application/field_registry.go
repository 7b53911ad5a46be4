package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

// FieldRegistry is a read-through cache over the CRM's field-definition
// endpoints. Entries have no TTL; the reconciler clears the cache at the
// start of each pull and push, so a stale entry is only ever observed
// within a single logical operation.
type FieldRegistry struct {
	crm    ports.CRMClient
	cache  ports.FieldCache
	logger zerolog.Logger
}

// NewFieldRegistry creates a new field registry.
func NewFieldRegistry(crm ports.CRMClient, cache ports.FieldCache, logger zerolog.Logger) *FieldRegistry {
	return &FieldRegistry{
		crm:    crm,
		cache:  cache,
		logger: logger.With().Str("service", "field_registry").Logger(),
	}
}

// Definitions returns the entity's field definitions, reading through the
// cache.
func (r *FieldRegistry) Definitions(ctx context.Context, entity domain.EntityType) ([]domain.FieldDefinition, error) {
	if defs, ok, err := r.cache.Get(ctx, entity); err == nil && ok {
		return defs, nil
	} else if err != nil {
		r.logger.Warn().Err(err).Str("entity", string(entity)).Msg("Field cache read failed, fetching directly")
	}

	defs, err := r.crm.FieldDefinitions(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch field definitions for %s: %w", entity, err)
	}

	if err := r.cache.Put(ctx, entity, defs); err != nil {
		r.logger.Warn().Err(err).Str("entity", string(entity)).Msg("Field cache write failed")
	}
	return defs, nil
}

// Clear empties the cache. Called at the start of every pull and push so
// definitions never go stale across operations.
func (r *FieldRegistry) Clear(ctx context.Context) {
	if err := r.cache.Clear(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("Field cache clear failed")
	}
}
