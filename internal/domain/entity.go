package domain

import "fmt"

// EntityType identifies one of the CRM's record categories.
type EntityType string

const (
	EntityDeals         EntityType = "deals"
	EntityPersons       EntityType = "persons"
	EntityOrganizations EntityType = "organizations"
	EntityActivities    EntityType = "activities"
	EntityLeads         EntityType = "leads"
	EntityProducts      EntityType = "products"
)

// AllEntityTypes returns every supported entity type.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityDeals,
		EntityPersons,
		EntityOrganizations,
		EntityActivities,
		EntityLeads,
		EntityProducts,
	}
}

// ParseEntityType validates and converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	for _, known := range AllEntityTypes() {
		if e == known {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

// IdentifierField is the unique scalar identifier field present on every
// record of every entity type.
const IdentifierField = "id"
