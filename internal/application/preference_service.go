package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
	"sheetsync-core-pipedrive-layer/internal/schema"
)

// PreferenceService persists the chosen column subset and ordering per
// sheet, entity type, and owner scope. Saves resolve to a shared team
// scope when the caller belongs to a team, otherwise to an individual
// scope; loads fall back shared -> individual -> static defaults.
type PreferenceService struct {
	kv     ports.KVStore
	logger zerolog.Logger
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(kv ports.KVStore, logger zerolog.Logger) *PreferenceService {
	return &PreferenceService{
		kv:     kv,
		logger: logger.With().Str("service", "preferences").Logger(),
	}
}

func columnsKey(sheetID string, entity domain.EntityType, scopeID string) string {
	return fmt.Sprintf("columns:%s:%s:%s", sheetID, entity, scopeID)
}

func headerMapKey(sheetID string, entity domain.EntityType) string {
	return fmt.Sprintf("headers:%s:%s", sheetID, entity)
}

// Save persists a descriptor list under the caller's scope, superseding
// (never merging with) any prior value, and rebuilds the header-to-field
// map so a later push resolves renamed headers to the correct remote
// fields.
func (s *PreferenceService) Save(ctx context.Context, entity domain.EntityType, sheetID string, cols []domain.ColumnDescriptor) error {
	for i, c := range cols {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("column %d rejected: %w", i, err)
		}
	}

	scope, scopeID, err := s.resolveScope(ctx)
	if err != nil {
		return err
	}

	data, err := domain.EncodeDescriptors(cols)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, scope, columnsKey(sheetID, entity, scopeID), string(data)); err != nil {
		return fmt.Errorf("failed to save column preference: %w", err)
	}

	if err := s.saveHeaderMap(ctx, entity, sheetID, cols); err != nil {
		return err
	}

	s.logger.Info().
		Str("sheetId", sheetID).
		Str("entity", string(entity)).
		Str("scope", scopeID).
		Int("columns", len(cols)).
		Msg("Column preference saved")
	return nil
}

// Load resolves the active descriptor list. The second return value
// reports whether a stored preference was found, as opposed to the static
// entity defaults.
//
// When the caller has a team and no shared preference exists yet, any
// individual preference is migrated forward to the shared scope. The
// individual copy is preserved as a fallback, never deleted.
func (s *PreferenceService) Load(ctx context.Context, entity domain.EntityType, sheetID string) ([]domain.ColumnDescriptor, bool, error) {
	teamID := domain.TeamIDFromContext(ctx)
	userID := domain.UserIDFromContext(ctx)

	if teamID != "" {
		sharedKey := columnsKey(sheetID, entity, "team:"+teamID)
		if cols, ok, err := s.read(ctx, ports.ScopeDocument, sharedKey); err != nil || ok {
			return cols, ok, err
		}
		if userID != "" {
			individualKey := columnsKey(sheetID, entity, "user:"+userID)
			cols, ok, err := s.read(ctx, ports.ScopeUser, individualKey)
			if err != nil {
				return nil, false, err
			}
			if ok {
				// first time a shared scope is available: copy forward
				data, err := domain.EncodeDescriptors(cols)
				if err != nil {
					return nil, false, err
				}
				if err := s.kv.Set(ctx, ports.ScopeDocument, sharedKey, string(data)); err != nil {
					return nil, false, fmt.Errorf("failed to migrate preference to shared scope: %w", err)
				}
				s.logger.Info().
					Str("sheetId", sheetID).
					Str("entity", string(entity)).
					Str("team", teamID).
					Msg("Migrated individual column preference to shared scope")
				return cols, true, nil
			}
		}
		return schema.DefaultColumns(entity), false, nil
	}

	if userID != "" {
		individualKey := columnsKey(sheetID, entity, "user:"+userID)
		if cols, ok, err := s.read(ctx, ports.ScopeUser, individualKey); err != nil || ok {
			return cols, ok, err
		}
	}

	return schema.DefaultColumns(entity), false, nil
}

// HeaderMap loads the persisted header-to-field map for a sheet. A missing
// map yields nil; the push path then relies on the static fallback map.
func (s *PreferenceService) HeaderMap(ctx context.Context, entity domain.EntityType, sheetID string) (domain.HeaderFieldMap, error) {
	raw, ok, err := s.kv.Get(ctx, ports.ScopeDocument, headerMapKey(sheetID, entity))
	if err != nil {
		return nil, fmt.Errorf("failed to load header map: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var m domain.HeaderFieldMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("failed to decode header map: %w", err)
	}
	return m, nil
}

func (s *PreferenceService) saveHeaderMap(ctx context.Context, entity domain.EntityType, sheetID string, cols []domain.ColumnDescriptor) error {
	m := domain.BuildHeaderFieldMap(cols)
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode header map: %w", err)
	}
	if err := s.kv.Set(ctx, ports.ScopeDocument, headerMapKey(sheetID, entity), string(data)); err != nil {
		return fmt.Errorf("failed to save header map: %w", err)
	}
	return nil
}

func (s *PreferenceService) resolveScope(ctx context.Context) (ports.KVScope, string, error) {
	if teamID := domain.TeamIDFromContext(ctx); teamID != "" {
		return ports.ScopeDocument, "team:" + teamID, nil
	}
	if userID := domain.UserIDFromContext(ctx); userID != "" {
		return ports.ScopeUser, "user:" + userID, nil
	}
	return "", "", &domain.ConfigError{Op: "save column preference", Reason: "no user or team scope in context"}
}

func (s *PreferenceService) read(ctx context.Context, scope ports.KVScope, key string) ([]domain.ColumnDescriptor, bool, error) {
	raw, ok, err := s.kv.Get(ctx, scope, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load column preference: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	cols, err := domain.DecodeDescriptors([]byte(raw))
	if err != nil {
		// malformed persisted state is rejected, not silently accepted
		return nil, false, err
	}
	return cols, true, nil
}
