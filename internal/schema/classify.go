package schema

import (
	"regexp"
	"strings"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// Custom fields carry opaque hash keys assigned by the CRM.
var customFieldKeyRe = regexp.MustCompile(`^[0-9a-f]{32,40}(_until)?$`)

// IsCustomFieldKey reports whether a key is a tenant-defined custom field
// hash, including the synthesized "_until" end boundary of range fields.
func IsCustomFieldKey(key string) bool {
	return customFieldKeyRe.MatchString(key)
}

// System-field name patterns: server-maintained bookkeeping that belongs in
// the System Fields category rather than the main listing.
var systemPatternRe = regexp.MustCompile(`(_count|_flag|_hash)$|^formatted_`)

var systemFieldNames = map[string]struct{}{
	"add_time":                {},
	"update_time":             {},
	"stage_change_time":       {},
	"last_activity_date":      {},
	"next_activity_date":      {},
	"last_incoming_mail_time": {},
	"last_outgoing_mail_time": {},
	"rotten_time":             {},
	"cc_email":                {},
	"weighted_value":          {},
	"visible_to":              {},
	"origin":                  {},
}

// Categorize assigns a flattened key to one of the descriptor categories.
func Categorize(key string) string {
	base := key
	if i := strings.Index(key, "."); i >= 0 {
		base = key[:i]
	}
	if base == domain.CustomFieldsKey || IsCustomFieldKey(base) {
		return domain.CategoryCustom
	}
	if systemPatternRe.MatchString(base) {
		return domain.CategorySystem
	}
	if _, ok := systemFieldNames[base]; ok {
		return domain.CategorySystem
	}
	return domain.CategoryMain
}

// compositeKind classifies a sample value that expands into sub-columns
// instead of being flattened recursively.
type compositeKind int

const (
	compositeNone compositeKind = iota
	compositeMoney
	compositeAddress
	compositeContact
	compositeRelation
)

// addressComponents are the editable parts of an address composite, in
// emission order.
var addressComponents = []string{
	"street_number",
	"route",
	"sublocality",
	"locality",
	"admin_area_level_1",
	"admin_area_level_2",
	"country",
	"postal_code",
}

var addressComponentSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(addressComponents)+1)
	for _, c := range addressComponents {
		m[c] = struct{}{}
	}
	m["formatted_address"] = struct{}{}
	return m
}()

func isAddressComponent(name string) bool {
	_, ok := addressComponentSet[name]
	return ok
}

// detectComposite inspects a sample value and decides which expansion rule
// applies. Detection is structural so it works without field definitions.
func detectComposite(value any) compositeKind {
	switch v := value.(type) {
	case map[string]any:
		_, hasCurrency := v["currency"]
		_, hasValue := v["value"]
		_, hasAmount := v["amount"]
		if hasCurrency && (hasValue || hasAmount) {
			return compositeMoney
		}
		for k := range v {
			if isAddressComponent(k) {
				return compositeAddress
			}
		}
		return compositeRelation
	case []any:
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				_, hasLabel := m["label"]
				_, hasVal := m["value"]
				if hasLabel && hasVal {
					return compositeContact
				}
			}
		}
		return compositeNone
	default:
		return compositeNone
	}
}
