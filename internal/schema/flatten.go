package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

// Flattener turns a sample CRM record into a stable, deduplicated, ordered
// column descriptor list. Field definitions are optional: when present they
// supply custom-field names and range typing, otherwise detection is purely
// structural.
type Flattener struct {
	defs map[string]domain.FieldDefinition
}

// NewFlattener creates a flattener without field definitions.
func NewFlattener() *Flattener {
	return &Flattener{}
}

// WithDefinitions returns a flattener enriched with remote field
// definitions, keyed by field key.
func (f *Flattener) WithDefinitions(defs []domain.FieldDefinition) *Flattener {
	m := make(map[string]domain.FieldDefinition, len(defs))
	for _, d := range defs {
		m[d.Key] = d
	}
	return &Flattener{defs: m}
}

// Flatten produces the descriptor list for a sample record of the given
// entity type. The identifier column always comes first; standard fields
// follow in priority order; everything else is classified, expanded, and
// sorted deterministically so flattening the same sample twice yields the
// same list.
func (f *Flattener) Flatten(sample domain.Record, entity domain.EntityType) ([]domain.ColumnDescriptor, error) {
	if len(sample) == 0 {
		return nil, &domain.SchemaError{Entity: entity, Err: errors.New("empty sample record")}
	}

	b := &builder{
		entity: entity,
		defs:   f.defs,
		seen:   make(map[string]struct{}),
	}

	// 1. identifier column, required and read-only
	b.emit(domain.ColumnDescriptor{
		Key:         domain.IdentifierField,
		DisplayName: DisplayName(domain.IdentifierField),
		ReadOnly:    true,
		Category:    domain.CategoryMain,
	})

	// 2. standard fields present in the sample, in priority order
	std := make(map[string]struct{})
	for _, key := range standardFieldOrder[entity] {
		std[key] = struct{}{}
		if key == domain.IdentifierField {
			continue
		}
		if v, ok := sample[key]; ok {
			b.field(key, v)
		}
	}

	// 3. remaining top-level keys, visited in sorted order so emission is
	// deterministic
	rest := make([]string, 0, len(sample))
	for key := range sample {
		if key == domain.IdentifierField {
			continue
		}
		if _, isStd := std[key]; isStd {
			continue
		}
		rest = append(rest, key)
	}
	sort.Strings(rest)

	for _, key := range rest {
		if key == domain.CustomFieldsKey {
			cf, ok := sample[key].(map[string]any)
			if !ok {
				return nil, &domain.SchemaError{Entity: entity, Err: fmt.Errorf("custom_fields is not an object")}
			}
			b.customFields(cf)
			continue
		}
		b.field(key, sample[key])
	}

	cols := b.cols
	sortColumns(cols, entity)
	return cols, nil
}

type builder struct {
	entity domain.EntityType
	defs   map[string]domain.FieldDefinition
	seen   map[string]struct{}
	cols   []domain.ColumnDescriptor
}

// emit appends a descriptor, dropping keyless descriptors and keeping the
// first occurrence of a key.
func (b *builder) emit(c domain.ColumnDescriptor) {
	if c.Key == "" {
		return
	}
	if _, dup := b.seen[c.Key]; dup {
		return
	}
	b.seen[c.Key] = struct{}{}
	b.cols = append(b.cols, c)
}

// field emits descriptors for one top-level sample key.
func (b *builder) field(key string, v any) {
	switch detectComposite(v) {
	case compositeMoney:
		b.money(key)
	case compositeAddress:
		b.address(key, v.(map[string]any))
	case compositeContact:
		b.contact(key, v.([]any))
	case compositeRelation:
		b.relation(key, v.(map[string]any))
	default:
		b.scalar(key)
	}
}

// customFields expands the custom_fields namespace. Range fields pair a
// start key with a "<hash>_until" end key; the counterpart is registered
// even when the sample only exposes one side.
func (b *builder) customFields(cf map[string]any) {
	keys := make([]string, 0, len(cf))
	for k := range cf {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, hash := range keys {
		path := domain.CustomFieldsKey + "." + hash

		if strings.HasSuffix(hash, "_until") {
			start := strings.TrimSuffix(hash, "_until")
			if _, ok := cf[start]; ok {
				continue // paired when the start key is visited
			}
			// only the end boundary is present; register both sides anyway
			b.rangePair(domain.CustomFieldsKey+"."+start, b.customName(start))
			continue
		}

		if b.isRangeField(hash, cf) {
			b.rangePair(path, b.customName(hash))
			continue
		}

		name := b.customName(hash)
		switch detectComposite(cf[hash]) {
		case compositeMoney:
			b.moneyNamed(path, name)
		case compositeAddress:
			b.addressNamed(path, name, cf[hash].(map[string]any))
		default:
			b.emit(domain.ColumnDescriptor{
				Key:         path,
				DisplayName: name,
				ReadOnly:    IsReadOnlyField(path, b.entity),
				Category:    domain.CategoryCustom,
			})
		}
	}
}

// isRangeField reports whether a custom field is a date/time range, either
// by its definition type or by the presence of its "_until" sibling.
func (b *builder) isRangeField(hash string, cf map[string]any) bool {
	if def, ok := b.defs[hash]; ok {
		if def.FieldType == domain.FieldTypeDateRange || def.FieldType == domain.FieldTypeTimeRange {
			return true
		}
	}
	_, hasEnd := cf[hash+"_until"]
	return hasEnd
}

// rangePair emits the "<field> - Start" / "<field> - End" columns. The end
// boundary follows the "<hash>_until" naming convention so the pairing
// survives partial data.
func (b *builder) rangePair(startPath, name string) {
	b.emit(domain.ColumnDescriptor{
		Key:         startPath,
		DisplayName: name + " - Start",
		ReadOnly:    IsReadOnlyField(startPath, b.entity),
		Category:    domain.CategoryCustom,
	})
	endPath := startPath + "_until"
	b.emit(domain.ColumnDescriptor{
		Key:         endPath,
		DisplayName: name + " - End",
		ReadOnly:    IsReadOnlyField(endPath, b.entity),
		Category:    domain.CategoryCustom,
	})
}

// money emits the descriptive parent plus the single editable amount
// sub-column; the currency side is never directly editable.
func (b *builder) money(key string) {
	b.moneyNamed(key, b.nameFor(key))
}

func (b *builder) moneyNamed(key, name string) {
	category := Categorize(key)
	b.emit(domain.ColumnDescriptor{
		Key:         key,
		DisplayName: name,
		ReadOnly:    true,
		Category:    category,
	})
	sub := key + ".amount"
	b.emit(domain.ColumnDescriptor{
		Key:         sub,
		DisplayName: name + " - Amount",
		IsNested:    true,
		ParentKey:   key,
		ReadOnly:    IsReadOnlyField(sub, b.entity),
		Category:    category,
	})
}

// address emits the descriptive parent plus one sub-column per component
// present in the sample.
func (b *builder) address(key string, m map[string]any) {
	b.addressNamed(key, b.nameFor(key), m)
}

func (b *builder) addressNamed(key, name string, m map[string]any) {
	category := Categorize(key)
	b.emit(domain.ColumnDescriptor{
		Key:         key,
		DisplayName: name,
		ReadOnly:    true,
		Category:    category,
	})
	for _, comp := range addressComponents {
		if _, ok := m[comp]; !ok {
			continue
		}
		sub := key + "." + comp
		b.emit(domain.ColumnDescriptor{
			Key:         sub,
			DisplayName: name + " - " + titleWords(comp),
			IsNested:    true,
			ParentKey:   key,
			ReadOnly:    IsReadOnlyField(sub, b.entity),
			Category:    category,
		})
	}
	if _, ok := m["formatted_address"]; ok {
		sub := key + ".formatted_address"
		b.emit(domain.ColumnDescriptor{
			Key:         sub,
			DisplayName: name + " - Formatted",
			IsNested:    true,
			ParentKey:   key,
			ReadOnly:    true,
			Category:    category,
		})
	}
}

// contact emits the descriptive parent plus one sub-column per distinct
// label found in the sample. Labels, never numeric indices: positions are
// meaningless across sync cycles.
func (b *builder) contact(key string, arr []any) {
	name := b.nameFor(key)
	category := Categorize(key)
	b.emit(domain.ColumnDescriptor{
		Key:         key,
		DisplayName: name,
		ReadOnly:    true,
		Category:    category,
	})
	seen := make(map[string]struct{})
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		label, _ := m["label"].(string)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		sub := key + "." + label
		b.emit(domain.ColumnDescriptor{
			Key:         sub,
			DisplayName: name + " (" + titleWords(label) + ")",
			IsNested:    true,
			ParentKey:   key,
			ReadOnly:    IsReadOnlyField(sub, b.entity),
			Category:    category,
		})
	}
}

// relation emits the relation field itself plus a display-only name
// sub-column when the sample exposes one.
func (b *builder) relation(key string, m map[string]any) {
	b.scalar(key)
	if _, ok := m["name"]; ok {
		sub := key + ".name"
		b.emit(domain.ColumnDescriptor{
			Key:         sub,
			DisplayName: DisplayName(sub),
			IsNested:    true,
			ParentKey:   key,
			ReadOnly:    true,
			Category:    Categorize(key),
		})
	}
}

func (b *builder) scalar(key string) {
	b.emit(domain.ColumnDescriptor{
		Key:         key,
		DisplayName: b.nameFor(key),
		ReadOnly:    IsReadOnlyField(key, b.entity),
		Category:    Categorize(key),
	})
}

// nameFor resolves the display name, preferring the remote field
// definition's name for custom fields.
func (b *builder) nameFor(key string) string {
	if IsCustomFieldKey(key) {
		return b.customName(key)
	}
	return DisplayName(key)
}

// customName names a custom field from its definition, falling back to a
// short form of the hash.
func (b *builder) customName(hash string) string {
	if def, ok := b.defs[hash]; ok && def.Name != "" {
		return def.Name
	}
	short := hash
	if len(short) > 8 {
		short = short[:8]
	}
	return "Custom Field " + short
}

// sortColumns orders descriptors: identifier, primary name, owner, standard
// fields in priority order, remaining top-level fields, then nested fields
// grouped by parent and alphabetized by display name within each group.
func sortColumns(cols []domain.ColumnDescriptor, entity domain.EntityType) {
	priority := make(map[string]int, len(standardFieldOrder[entity]))
	for i, key := range standardFieldOrder[entity] {
		priority[key] = i
	}
	nameField := primaryNameField[entity]
	owner := ownerField[entity]

	rank := func(c domain.ColumnDescriptor) (int, int, string, string) {
		switch {
		case c.Key == domain.IdentifierField:
			return 0, 0, "", ""
		case c.Key == nameField:
			return 1, 0, "", ""
		case c.Key == owner:
			return 2, 0, "", ""
		}
		if idx, ok := priority[c.Key]; ok {
			return 3, idx, "", ""
		}
		if !c.IsNested {
			return 4, 0, "", c.DisplayName
		}
		return 5, 0, c.ParentKey, c.DisplayName
	}

	sort.SliceStable(cols, func(i, j int) bool {
		ci, pi, gi, ni := rank(cols[i])
		cj, pj, gj, nj := rank(cols[j])
		if ci != cj {
			return ci < cj
		}
		if pi != pj {
			return pi < pj
		}
		if gi != gj {
			return gi < gj
		}
		return ni < nj
	})
}
