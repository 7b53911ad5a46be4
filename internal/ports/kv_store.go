package ports

import "context"

// KVScope selects the persistence boundary of a stored value.
type KVScope string

const (
	// ScopeUser stores per-user values (individual column preferences).
	ScopeUser KVScope = "user"
	// ScopeDocument stores per-document values shared by a team (shared
	// preferences, header maps, sync timestamps).
	ScopeDocument KVScope = "document"
	// ScopeScript stores global values shared across all documents.
	ScopeScript KVScope = "script"
)

// KVStore defines the interface for scoped key-value persistence. Writers
// always write a full replacement value so readers never observe a torn
// intermediate state.
type KVStore interface {
	Get(ctx context.Context, scope KVScope, key string) (string, bool, error)
	Set(ctx context.Context, scope KVScope, key string, value string) error
	Delete(ctx context.Context, scope KVScope, key string) error
}
