package schema

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// Known relation fields and their human labels.
var relationLabels = map[string]string{
	"owner_id":        "Owner",
	"org_id":          "Organization",
	"organization_id": "Organization",
	"person_id":       "Person",
	"deal_id":         "Deal",
}

// DisplayName generates the human-readable column name for a flattened key.
// Relation fields get their human label, relation sub-paths get
// "<Relation> <Subfield>", and generic *_id fields lose the suffix.
func DisplayName(key string) string {
	if key == domain.IdentifierField {
		return "ID"
	}
	if label, ok := relationLabels[key]; ok {
		return label
	}
	if i := strings.Index(key, "."); i >= 0 {
		parent, sub := key[:i], key[i+1:]
		if label, ok := relationLabels[parent]; ok {
			return label + " " + titleWords(sub)
		}
		return titleWords(parent) + " " + titleWords(sub)
	}
	if strings.HasSuffix(key, "_id") {
		return titleWords(strings.TrimSuffix(key, "_id"))
	}
	return titleWords(key)
}

// titleWords converts a snake_case segment chain into Title Case words.
func titleWords(s string) string {
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")
	caser := cases.Title(language.English)
	return caser.String(s)
}
