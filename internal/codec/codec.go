// Package codec converts grid cell values into remote-compatible payload
// values and remote payload values into display text, driven by the remote
// field definitions.
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// Codec performs bidirectional value transforms for one entity type's
// field set.
type Codec struct {
	defs map[string]domain.FieldDefinition
}

// New builds a codec over the given field definitions. A nil or empty
// definition set degrades to pass-through for everything except dates and
// times, which are still recognized by key convention.
func New(defs []domain.FieldDefinition) *Codec {
	m := make(map[string]domain.FieldDefinition, len(defs))
	for _, d := range defs {
		m[d.Key] = d
	}
	return &Codec{defs: m}
}

// definition resolves the field definition for a flattened key, looking up
// custom fields by their hash.
func (c *Codec) definition(fieldKey string) (domain.FieldDefinition, bool) {
	if d, ok := c.defs[fieldKey]; ok {
		return d, true
	}
	// custom_fields.<hash> and custom_fields.<hash>.<sub> resolve by hash
	if rest, ok := strings.CutPrefix(fieldKey, domain.CustomFieldsKey+"."); ok {
		hash, _, _ := strings.Cut(rest, ".")
		if d, ok := c.defs[hash]; ok {
			return d, true
		}
	}
	return domain.FieldDefinition{}, false
}

// Encode converts a grid cell value into the remote payload value for the
// field. Unparseable values return an EncodingError; the caller skips the
// field for that row rather than aborting the row.
func (c *Codec) Encode(fieldKey, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	def, ok := c.definition(fieldKey)

	if ok {
		switch def.FieldType {
		case domain.FieldTypeSet:
			return c.encodeMultiOption(def, raw), nil
		case domain.FieldTypeEnum:
			if id, found := def.OptionID(raw); found {
				return id, nil
			}
			// unresolvable labels are dropped, not substituted
			return nil, &domain.EncodingError{Field: fieldKey, Value: raw, Err: fmt.Errorf("no option with label %q", raw)}
		case domain.FieldTypeDate, domain.FieldTypeDateRange:
			return encodeWithError(fieldKey, raw, EncodeDate)
		case domain.FieldTypeTime, domain.FieldTypeTimeRange:
			return encodeWithError(fieldKey, raw, EncodeTime)
		}
	}

	// no definition: fall back to key conventions for temporal fields
	switch {
	case strings.HasSuffix(fieldKey, "_date") || fieldKey == "due_date":
		return encodeWithError(fieldKey, raw, EncodeDate)
	case fieldKey == "due_time":
		return encodeWithError(fieldKey, raw, EncodeTime)
	}

	// everything else passes through unchanged
	return raw, nil
}

func encodeWithError(fieldKey, raw string, fn func(string) (string, error)) (any, error) {
	out, err := fn(raw)
	if err != nil {
		return nil, &domain.EncodingError{Field: fieldKey, Value: raw, Err: err}
	}
	return out, nil
}

// encodeMultiOption maps a comma-separated label string to the remote
// option-ID array. Labels that resolve to no option are dropped.
func (c *Codec) encodeMultiOption(def domain.FieldDefinition, raw string) []int {
	if raw == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if id, ok := def.OptionID(label); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// DecodeCell reads and renders one record field for display. Multi-option
// fields take the stored value as-is so every selected option is rendered;
// everything else goes through the PathValue display conventions.
func (c *Codec) DecodeCell(rec domain.Record, fieldKey string) string {
	if def, ok := c.definition(fieldKey); ok && def.IsMultiOption() {
		v := domain.RawPathValue(rec, fieldKey)
		if v == nil {
			return ""
		}
		return c.decodeOptions(def, v)
	}
	return c.Decode(fieldKey, domain.PathValue(rec, fieldKey))
}

// Decode converts a remote payload value into grid display text.
func (c *Codec) Decode(fieldKey string, v any) string {
	if v == nil {
		return ""
	}
	if def, ok := c.definition(fieldKey); ok && def.IsMultiOption() {
		return c.decodeOptions(def, v)
	}
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatNumber(val)
	case map[string]any:
		// monetary composites display as "amount currency"
		if cur, ok := val["currency"].(string); ok {
			if amount, ok := val["value"]; ok && amount != nil {
				return c.Decode(fieldKey, amount) + " " + cur
			}
			if amount, ok := val["amount"]; ok && amount != nil {
				return c.Decode(fieldKey, amount) + " " + cur
			}
		}
		if formatted, ok := val["formatted_address"].(string); ok {
			return formatted
		}
		if name, ok := val["name"].(string); ok {
			return name
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// decodeOptions renders stored option IDs as their labels, joined by a
// comma separator.
func (c *Codec) decodeOptions(def domain.FieldDefinition, v any) string {
	switch ids := v.(type) {
	case []any:
		labels := make([]string, 0, len(ids))
		for _, raw := range ids {
			if label, ok := optionLabelOf(def, raw); ok {
				labels = append(labels, label)
			}
		}
		return strings.Join(labels, ", ")
	case string:
		// the wire also carries option sets as "10,11" strings
		parts := strings.Split(ids, ",")
		labels := make([]string, 0, len(parts))
		for _, p := range parts {
			if label, ok := optionLabelOf(def, strings.TrimSpace(p)); ok {
				labels = append(labels, label)
			}
		}
		if len(labels) == 0 {
			return ids
		}
		return strings.Join(labels, ", ")
	default:
		if label, ok := optionLabelOf(def, v); ok {
			return label
		}
		return fmt.Sprint(v)
	}
}

func optionLabelOf(def domain.FieldDefinition, raw any) (string, bool) {
	switch id := raw.(type) {
	case float64:
		return def.OptionLabel(int(id))
	case int:
		return def.OptionLabel(id)
	case string:
		if n, err := strconv.Atoi(id); err == nil {
			return def.OptionLabel(n)
		}
	}
	return "", false
}

// formatNumber renders JSON numbers without a spurious fractional part.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
