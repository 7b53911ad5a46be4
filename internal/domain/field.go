package domain

// FieldOption is one selectable option of an enum or multi-option field.
type FieldOption struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// FieldDefinition describes one remote field as reported by the CRM's
// field-definition endpoints. Custom fields carry hash-like keys; standard
// fields carry readable snake_case keys.
type FieldDefinition struct {
	Key       string        `json:"key"`
	Name      string        `json:"name"`
	FieldType string        `json:"field_type"`
	Options   []FieldOption `json:"options,omitempty"`
}

// Remote field types that require special codec or flattening treatment.
const (
	FieldTypeEnum      = "enum"
	FieldTypeSet       = "set"
	FieldTypeDate      = "date"
	FieldTypeTime      = "time"
	FieldTypeDateRange = "daterange"
	FieldTypeTimeRange = "timerange"
	FieldTypeMonetary  = "monetary"
	FieldTypeAddress   = "address"
	FieldTypePhone     = "phone"
)

// IsMultiOption reports whether the field stores one or more options picked
// from a fixed list.
func (d FieldDefinition) IsMultiOption() bool {
	return d.FieldType == FieldTypeEnum || d.FieldType == FieldTypeSet
}

// OptionID resolves an option label to its remote ID.
func (d FieldDefinition) OptionID(label string) (int, bool) {
	for _, o := range d.Options {
		if o.Label == label {
			return o.ID, true
		}
	}
	return 0, false
}

// OptionLabel resolves a remote option ID to its label.
func (d FieldDefinition) OptionLabel(id int) (string, bool) {
	for _, o := range d.Options {
		if o.ID == id {
			return o.Label, true
		}
	}
	return "", false
}
