package domain

import (
	"fmt"
	"strings"
)

// Record is one CRM entity instance as decoded from the API: an opaque tree
// of key->value pairs whose values are scalars, nested objects, or arrays
// of objects.
type Record map[string]any

// CustomFieldsKey is the payload namespace the remote API uses to segregate
// tenant-defined fields from standard fields. Misplacing a value across this
// boundary silently drops the update on the remote side.
const CustomFieldsKey = "custom_fields"

// ID returns the record's identifier as a string, or "" when absent.
func (r Record) ID() string {
	v, ok := r[IdentifierField]
	if !ok || v == nil {
		return ""
	}
	switch id := v.(type) {
	case string:
		return id
	case float64:
		// JSON numbers decode as float64; identifiers are integral.
		return fmt.Sprintf("%.0f", id)
	case int:
		return fmt.Sprintf("%d", id)
	case int64:
		return fmt.Sprintf("%d", id)
	default:
		return fmt.Sprint(id)
	}
}

// PathValue reads the value at a dotted path inside a nested record, e.g.
// "custom_fields.amount.currency".
//
// Traversal conventions:
//   - object segments descend by key
//   - an array encountered mid-path selects the element whose "label"
//     sub-key equals the next segment (contact arrays), else the first
//     element
//   - a label-selected element resolves to its "value" sub-key when the
//     path ends on the label segment
//   - the "amount" segment falls back to the "value" sub-key on monetary
//     composites, which carry {value, currency} on the wire
//
// A raw array is never returned: an array at the end of the path resolves
// to its first element's "value" sub-key, or nil. Callers that need the
// whole stored array, such as multi-option decoding, use RawPathValue.
func PathValue(rec Record, path string) any {
	cur := RawPathValue(rec, path)
	if arr, ok := cur.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		if m, ok := asObject(arr[0]); ok {
			return m[valueKey]
		}
		return arr[0]
	}
	return cur
}

// RawPathValue traverses like PathValue but returns a terminal array as
// stored, so every element stays visible to the caller.
func RawPathValue(rec Record, path string) any {
	if path == "" {
		return nil
	}
	segs := strings.Split(path, ".")
	var cur any = map[string]any(rec)

	for i := 0; i < len(segs); i++ {
		seg := segs[i]

		if arr, ok := cur.([]any); ok {
			elem, labelled := arrayElement(arr, seg)
			if elem == nil {
				return nil
			}
			if labelled {
				if i == len(segs)-1 {
					return elem[valueKey]
				}
				cur = elem
				continue
			}
			cur = elem
		}

		m, ok := asObject(cur)
		if !ok {
			return nil
		}
		v, ok := m[seg]
		if !ok && seg == "amount" {
			// monetary composites store the editable side under "value"
			if _, hasCurrency := m["currency"]; hasCurrency {
				v, ok = m[valueKey]
			}
		}
		if !ok {
			return nil
		}
		cur = v
	}

	return cur
}

const valueKey = "value"

// arrayElement picks the element of arr addressed by seg: the object whose
// "label" matches seg (labelled=true), else the first element.
func arrayElement(arr []any, seg string) (map[string]any, bool) {
	for _, e := range arr {
		if m, ok := asObject(e); ok {
			if lbl, _ := m["label"].(string); lbl != "" && strings.EqualFold(lbl, seg) {
				return m, true
			}
		}
	}
	if len(arr) == 0 {
		return nil, false
	}
	m, _ := asObject(arr[0])
	return m, false
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

// SetPathValue writes value at a dotted path inside payload, creating
// intermediate objects as needed. Paths under the custom_fields namespace
// land in the payload's custom_fields sub-object; every other path is
// written from the payload root. This split mirrors the remote API's update
// contract and must never be bypassed.
func SetPathValue(payload map[string]any, path string, value any) {
	if payload == nil || path == "" {
		return
	}
	segs := strings.Split(path, ".")
	cur := payload
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if last == "amount" && len(segs) > 1 {
		// monetary composites carry the editable side as "value" on the wire
		last = valueKey
	}
	cur[last] = value
}
