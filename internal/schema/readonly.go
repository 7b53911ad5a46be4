package schema

import (
	"strings"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// Fields that match a read-only pattern but are always editable.
var alwaysEditable = map[string]struct{}{
	"name":       {},
	"first_name": {},
	"last_name":  {},
	"label_ids":  {},
}

// Relation setters: top-level *_id fields that reassign a linked record and
// are therefore editable even though their prefix names another entity.
var relationSetters = map[string]struct{}{
	"owner_id":        {},
	"user_id":         {},
	"org_id":          {},
	"organization_id": {},
	"person_id":       {},
	"deal_id":         {},
	"stage_id":        {},
	"pipeline_id":     {},
}

// Cross-entity field prefixes: data mirrored from another entity type, only
// editable on the entity that owns it.
var crossEntityPrefixes = map[string]domain.EntityType{
	"org_":          domain.EntityOrganizations,
	"organization_": domain.EntityOrganizations,
	"person_":       domain.EntityPersons,
	"deal_":         domain.EntityDeals,
}

// Server-computed fields, never accepted by the update endpoint.
var serverComputed = map[string]struct{}{
	"add_time":                 {},
	"update_time":              {},
	"stage_change_time":        {},
	"close_time":               {},
	"won_time":                 {},
	"first_won_time":           {},
	"lost_time":                {},
	"rotten_time":              {},
	"last_activity_date":       {},
	"next_activity_date":       {},
	"last_incoming_mail_time":  {},
	"last_outgoing_mail_time":  {},
	"weighted_value":           {},
	"formatted_value":          {},
	"formatted_weighted_value": {},
	"cc_email":                 {},
	"creator_user_id":          {},
}

var readOnlyPatternRe = systemPatternRe // same patterns drive both category and editability

// IsReadOnlyField decides whether a flattened key may be pushed back to the
// remote for a given entity type. It is total and side-effect-free: the
// result depends only on the inputs, never on data content or call order.
// It underlies both display styling and push eligibility.
func IsReadOnlyField(key string, entity domain.EntityType) bool {
	if key == "" || key == domain.IdentifierField {
		return true
	}

	if i := strings.LastIndex(key, "."); i >= 0 {
		return nestedReadOnly(key, key[:i], key[i+1:], entity)
	}

	if _, ok := alwaysEditable[key]; ok {
		return false
	}
	if _, ok := relationSetters[key]; ok {
		return false
	}
	if IsCustomFieldKey(key) {
		return false
	}
	for prefix, owner := range crossEntityPrefixes {
		if strings.HasPrefix(key, prefix) && entity != owner {
			return true
		}
	}
	if _, ok := serverComputed[key]; ok {
		return true
	}
	return readOnlyPatternRe.MatchString(key)
}

// nestedReadOnly handles sub-column keys produced by composite expansion.
func nestedReadOnly(key, parent, leaf string, entity domain.EntityType) bool {
	switch {
	case leaf == "currency":
		// the currency side of a monetary composite is never directly editable
		return true
	case leaf == "formatted_address":
		return true
	case isAddressComponent(leaf):
		// address components are owned by organizations
		return entity != domain.EntityOrganizations
	case leaf == "amount":
		// the editable side of a monetary composite
		return false
	case parent == "email" || parent == "phone":
		// contact sub-columns are owned by persons
		return entity != domain.EntityPersons
	case strings.HasPrefix(key, domain.CustomFieldsKey+"."):
		return false
	default:
		// relation sub-paths (owner_id.name and the like) are display only
		return true
	}
}
