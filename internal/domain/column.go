package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column categories assigned by the schema flattener.
const (
	CategoryMain   = "Main Fields"
	CategorySystem = "System Fields"
	CategoryCustom = "Custom Fields"
)

// ColumnDescriptor is the metadata describing one flattened field exposed
// as a grid column.
type ColumnDescriptor struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	IsNested    bool   `json:"isNested"`
	ParentKey   string `json:"parentKey,omitempty"`
	ReadOnly    bool   `json:"readOnly"`
	Category    string `json:"category"`
	CustomName  string `json:"customName,omitempty"`
}

// Header returns the text shown in the grid header row: the user's custom
// name when set, otherwise the generated display name.
func (c ColumnDescriptor) Header() string {
	if c.CustomName != "" {
		return c.CustomName
	}
	return c.DisplayName
}

// Validate checks the descriptor invariants: a non-empty key, and the
// nested flag agreeing with the presence of a parent key.
func (c ColumnDescriptor) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("column descriptor missing key")
	}
	if c.IsNested && c.ParentKey == "" {
		return fmt.Errorf("column %q flagged nested without parent key", c.Key)
	}
	if !c.IsNested && c.ParentKey != "" {
		return fmt.Errorf("column %q has parent key %q but is not nested", c.Key, c.ParentKey)
	}
	return nil
}

// DecodeDescriptors deserializes a persisted descriptor list, rejecting
// unknown fields and any descriptor that fails validation. Malformed
// persisted state is an error, never silently accepted.
func DecodeDescriptors(data []byte) ([]ColumnDescriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cols []ColumnDescriptor
	if err := dec.Decode(&cols); err != nil {
		return nil, fmt.Errorf("failed to decode column descriptors: %w", err)
	}
	for i, c := range cols {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("descriptor %d invalid: %w", i, err)
		}
	}
	return cols, nil
}

// EncodeDescriptors serializes a descriptor list for persistence.
func EncodeDescriptors(cols []ColumnDescriptor) ([]byte, error) {
	data, err := json.Marshal(cols)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column descriptors: %w", err)
	}
	return data, nil
}

// HeaderFieldMap maps the currently displayed header text back to the
// stable field key. It is rebuilt on every preference save so a push after
// a header rename still resolves the correct remote field.
type HeaderFieldMap map[string]string

// BuildHeaderFieldMap derives the map from a descriptor list. The custom
// name takes priority over the generated display name; on a header
// collision the first descriptor wins, matching flattener dedupe rules.
func BuildHeaderFieldMap(cols []ColumnDescriptor) HeaderFieldMap {
	m := make(HeaderFieldMap, len(cols))
	for _, c := range cols {
		header := c.Header()
		if header == "" {
			continue
		}
		if _, exists := m[header]; !exists {
			m[header] = c.Key
		}
	}
	return m
}

// Resolve returns the field key for a displayed header.
func (m HeaderFieldMap) Resolve(header string) (string, bool) {
	key, ok := m[header]
	return key, ok
}
