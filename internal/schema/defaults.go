package schema

import "sheetsync-core-pipedrive-layer/internal/domain"

// standardFieldOrder lists each entity type's standard fields in display
// priority: identifier, primary name, owner, entity essentials, timestamps.
// Flattening emits only the ones actually present in the sample record.
var standardFieldOrder = map[domain.EntityType][]string{
	domain.EntityDeals: {
		"id", "title", "owner_id", "value", "currency", "status",
		"stage_id", "pipeline_id", "person_id", "org_id",
		"expected_close_date", "probability", "lost_reason",
		"won_time", "lost_time", "add_time", "update_time",
	},
	domain.EntityPersons: {
		"id", "name", "owner_id", "org_id", "email", "phone",
		"first_name", "last_name", "label_ids",
		"add_time", "update_time",
	},
	domain.EntityOrganizations: {
		"id", "name", "owner_id", "address", "label_ids",
		"people_count", "add_time", "update_time",
	},
	domain.EntityActivities: {
		"id", "subject", "user_id", "type", "due_date", "due_time",
		"duration", "done", "deal_id", "person_id", "org_id", "note",
		"add_time", "update_time",
	},
	domain.EntityLeads: {
		"id", "title", "owner_id", "person_id", "organization_id",
		"value", "expected_close_date", "label_ids",
		"add_time", "update_time",
	},
	domain.EntityProducts: {
		"id", "name", "code", "unit", "tax", "owner_id", "prices",
		"add_time", "update_time",
	},
}

// primaryNameField is the entity's title column, sorted directly after the
// identifier.
var primaryNameField = map[domain.EntityType]string{
	domain.EntityDeals:         "title",
	domain.EntityPersons:       "name",
	domain.EntityOrganizations: "name",
	domain.EntityActivities:    "subject",
	domain.EntityLeads:         "title",
	domain.EntityProducts:      "name",
}

// ownerField is the entity's owner column, sorted directly after the name.
var ownerField = map[domain.EntityType]string{
	domain.EntityDeals:         "owner_id",
	domain.EntityPersons:       "owner_id",
	domain.EntityOrganizations: "owner_id",
	domain.EntityActivities:    "user_id",
	domain.EntityLeads:         "owner_id",
	domain.EntityProducts:      "owner_id",
}

// DefaultColumns returns the static fallback column set for an entity type,
// used when no preference is stored and when schema extraction fails.
func DefaultColumns(entity domain.EntityType) []domain.ColumnDescriptor {
	keys, ok := stdFieldsFor(entity)
	if !ok {
		keys = []string{"id", "name", "add_time", "update_time"}
	}
	cols := make([]domain.ColumnDescriptor, 0, len(keys))
	for _, key := range keys {
		cols = append(cols, domain.ColumnDescriptor{
			Key:         key,
			DisplayName: DisplayName(key),
			ReadOnly:    IsReadOnlyField(key, entity),
			Category:    Categorize(key),
		})
	}
	return cols
}

func stdFieldsFor(entity domain.EntityType) ([]string, bool) {
	keys, ok := standardFieldOrder[entity]
	return keys, ok
}

// FallbackFieldKeys maps the default display names back to field keys for
// an entity type. The push path uses it when a header is absent from the
// persisted HeaderFieldMap.
func FallbackFieldKeys(entity domain.EntityType) map[string]string {
	m := make(map[string]string)
	for _, col := range DefaultColumns(entity) {
		if _, exists := m[col.DisplayName]; !exists {
			m[col.DisplayName] = col.Key
		}
	}
	return m
}
