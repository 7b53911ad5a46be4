package ports

import (
	"context"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// CRMClient defines the interface for remote CRM API operations. The list
// endpoint accepts a saved filter id and a limit; the update endpoint is an
// idempotent per-record call keyed by entity id.
type CRMClient interface {
	// FetchRecords lists records of an entity type through a saved filter.
	// A filterID of 0 lists without a filter.
	FetchRecords(ctx context.Context, entity domain.EntityType, filterID int, limit int) ([]domain.Record, error)

	// UpdateRecord updates one record. The payload carries root fields plus
	// a nested custom_fields object for custom fields.
	UpdateRecord(ctx context.Context, entity domain.EntityType, id string, payload map[string]any) (domain.Record, error)

	// FieldDefinitions fetches the entity type's field metadata, including
	// option lists for enum and multi-option fields.
	FieldDefinitions(ctx context.Context, entity domain.EntityType) ([]domain.FieldDefinition, error)
}
