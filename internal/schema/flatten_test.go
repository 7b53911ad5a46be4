package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

const moneyHash = "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4"

func sampleDeal() domain.Record {
	return domain.Record{
		"id":       float64(1),
		"title":    "Acme Deal",
		"value":    float64(200),
		"currency": "USD",
		"custom_fields": map[string]any{
			moneyHash: map[string]any{
				"value":    float64(10),
				"currency": "EUR",
			},
		},
	}
}

func keysOf(cols []domain.ColumnDescriptor) []string {
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}

func findColumn(t *testing.T, cols []domain.ColumnDescriptor, key string) domain.ColumnDescriptor {
	t.Helper()
	for _, c := range cols {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("column %q not found in %v", key, keysOf(cols))
	return domain.ColumnDescriptor{}
}

func TestFlattenDealScenario(t *testing.T) {
	cols, err := NewFlattener().Flatten(sampleDeal(), domain.EntityDeals)
	require.NoError(t, err)

	// id, title, value, currency must lead, in that order
	keys := keysOf(cols)
	require.GreaterOrEqual(t, len(keys), 4)
	assert.Equal(t, []string{"id", "title", "value", "currency"}, keys[:4])

	amount := findColumn(t, cols, "custom_fields."+moneyHash+".amount")
	assert.True(t, amount.IsNested)
	assert.Equal(t, "custom_fields."+moneyHash, amount.ParentKey)
	assert.Regexp(t, `(- Amount|\(Currency\))$`, amount.DisplayName)
	assert.Equal(t, domain.CategoryCustom, amount.Category)
	assert.False(t, amount.ReadOnly, "money amount sub-column must be editable")

	assert.True(t, findColumn(t, cols, "id").ReadOnly)
	assert.False(t, findColumn(t, cols, "title").ReadOnly)
	assert.False(t, findColumn(t, cols, "value").ReadOnly)

	// the money parent is descriptive only
	assert.True(t, findColumn(t, cols, "custom_fields."+moneyHash).ReadOnly)
}

func TestFlattenIdempotent(t *testing.T) {
	f := NewFlattener()
	first, err := f.Flatten(sampleDeal(), domain.EntityDeals)
	require.NoError(t, err)
	second, err := f.Flatten(sampleDeal(), domain.EntityDeals)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFlattenNoKeylessDescriptors(t *testing.T) {
	samples := map[domain.EntityType]domain.Record{
		domain.EntityDeals: sampleDeal(),
		domain.EntityPersons: {
			"id":   float64(2),
			"name": "Grace Hopper",
			"email": []any{
				map[string]any{"label": "work", "value": "grace@example.com"},
			},
			"phone": []any{
				map[string]any{"label": "work", "value": "555-0100"},
				map[string]any{"label": "home", "value": "555-0101"},
			},
		},
		domain.EntityOrganizations: {
			"id":   float64(3),
			"name": "Acme Corp",
			"address": map[string]any{
				"route":             "Main St",
				"locality":          "Springfield",
				"postal_code":       "12345",
				"formatted_address": "Main St, Springfield 12345",
			},
			"people_count": float64(8),
		},
		domain.EntityActivities: {
			"id":       float64(4),
			"subject":  "Kickoff call",
			"due_date": "2026-02-01",
			"due_time": "10:30",
			"done":     false,
		},
	}

	for entity, sample := range samples {
		cols, err := NewFlattener().Flatten(sample, entity)
		require.NoError(t, err, "entity %s", entity)
		for _, c := range cols {
			assert.NotEmpty(t, c.Key, "keyless descriptor for %s: %+v", entity, c)
			assert.NoError(t, c.Validate(), "entity %s", entity)
		}
	}
}

func TestFlattenContactArraysByLabel(t *testing.T) {
	sample := domain.Record{
		"id":   float64(2),
		"name": "Grace Hopper",
		"phone": []any{
			map[string]any{"label": "work", "value": "555-0100"},
			map[string]any{"label": "mobile", "value": "555-0199"},
			map[string]any{"label": "work", "value": "555-0111"}, // duplicate label
		},
	}
	cols, err := NewFlattener().Flatten(sample, domain.EntityPersons)
	require.NoError(t, err)

	work := findColumn(t, cols, "phone.work")
	assert.Equal(t, "phone", work.ParentKey)
	assert.False(t, work.ReadOnly, "persons own their phone sub-columns")
	findColumn(t, cols, "phone.mobile")

	// never raw numeric indices
	for _, c := range cols {
		assert.NotRegexp(t, `\.\d+$`, c.Key)
	}
	// duplicate labels collapse to one sub-column
	count := 0
	for _, c := range cols {
		if c.Key == "phone.work" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestFlattenAddressOwnership(t *testing.T) {
	sample := domain.Record{
		"id":   float64(3),
		"name": "Acme Corp",
		"address": map[string]any{
			"locality":    "Springfield",
			"postal_code": "12345",
		},
	}

	orgCols, err := NewFlattener().Flatten(sample, domain.EntityOrganizations)
	require.NoError(t, err)
	assert.False(t, findColumn(t, orgCols, "address.locality").ReadOnly,
		"organizations own their address components")

	personCols, err := NewFlattener().Flatten(sample, domain.EntityPersons)
	require.NoError(t, err)
	assert.True(t, findColumn(t, personCols, "address.locality").ReadOnly,
		"address components are read-only off the owning entity")
}

func TestFlattenRangePairing(t *testing.T) {
	const rangeHash = "b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5"

	t.Run("both sides present", func(t *testing.T) {
		sample := domain.Record{
			"id":    float64(1),
			"title": "Deal",
			"custom_fields": map[string]any{
				rangeHash:            "2026-01-01",
				rangeHash + "_until": "2026-02-01",
			},
		}
		cols, err := NewFlattener().Flatten(sample, domain.EntityDeals)
		require.NoError(t, err)
		start := findColumn(t, cols, "custom_fields."+rangeHash)
		end := findColumn(t, cols, "custom_fields."+rangeHash+"_until")
		assert.Contains(t, start.DisplayName, "- Start")
		assert.Contains(t, end.DisplayName, "- End")
	})

	t.Run("only end side present still registers the pair", func(t *testing.T) {
		sample := domain.Record{
			"id":    float64(1),
			"title": "Deal",
			"custom_fields": map[string]any{
				rangeHash + "_until": "2026-02-01",
			},
		}
		cols, err := NewFlattener().Flatten(sample, domain.EntityDeals)
		require.NoError(t, err)
		findColumn(t, cols, "custom_fields."+rangeHash)
		findColumn(t, cols, "custom_fields."+rangeHash+"_until")
	})

	t.Run("definition type forces pairing without sibling", func(t *testing.T) {
		sample := domain.Record{
			"id":    float64(1),
			"title": "Deal",
			"custom_fields": map[string]any{
				rangeHash: "2026-01-01",
			},
		}
		f := NewFlattener().WithDefinitions([]domain.FieldDefinition{
			{Key: rangeHash, Name: "Trial Window", FieldType: domain.FieldTypeDateRange},
		})
		cols, err := f.Flatten(sample, domain.EntityDeals)
		require.NoError(t, err)
		start := findColumn(t, cols, "custom_fields."+rangeHash)
		assert.Equal(t, "Trial Window - Start", start.DisplayName)
		end := findColumn(t, cols, "custom_fields."+rangeHash+"_until")
		assert.Equal(t, "Trial Window - End", end.DisplayName)
	})
}

func TestFlattenDedupeFirstOccurrenceWins(t *testing.T) {
	// title is both a standard field and present in the sample; it must
	// appear exactly once
	cols, err := NewFlattener().Flatten(sampleDeal(), domain.EntityDeals)
	require.NoError(t, err)
	seen := make(map[string]int)
	for _, c := range cols {
		seen[c.Key]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "key %q emitted %d times", key, n)
	}
}

func TestFlattenEmptySample(t *testing.T) {
	_, err := NewFlattener().Flatten(domain.Record{}, domain.EntityDeals)
	require.Error(t, err)
	var schemaErr *domain.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestFlattenRelationSubColumns(t *testing.T) {
	sample := domain.Record{
		"id":    float64(1),
		"title": "Deal",
		"owner_id": map[string]any{
			"id":   float64(7),
			"name": "Ada",
		},
	}
	cols, err := NewFlattener().Flatten(sample, domain.EntityDeals)
	require.NoError(t, err)

	owner := findColumn(t, cols, "owner_id")
	assert.Equal(t, "Owner", owner.DisplayName)
	assert.False(t, owner.ReadOnly, "relation setter stays editable")

	ownerName := findColumn(t, cols, "owner_id.name")
	assert.Equal(t, "Owner Name", ownerName.DisplayName)
	assert.True(t, ownerName.ReadOnly)
}

func TestFlattenCategoryHeuristics(t *testing.T) {
	sample := domain.Record{
		"id":              float64(1),
		"title":           "Deal",
		"files_count":     float64(3),
		"formatted_value": "$200",
		"active_flag":     true,
		"next_step":       "call",
	}
	cols, err := NewFlattener().Flatten(sample, domain.EntityDeals)
	require.NoError(t, err)

	assert.Equal(t, domain.CategorySystem, findColumn(t, cols, "files_count").Category)
	assert.Equal(t, domain.CategorySystem, findColumn(t, cols, "formatted_value").Category)
	assert.Equal(t, domain.CategorySystem, findColumn(t, cols, "active_flag").Category)
	assert.Equal(t, domain.CategoryMain, findColumn(t, cols, "next_step").Category)
}

func TestDefaultColumns(t *testing.T) {
	for _, entity := range domain.AllEntityTypes() {
		cols := DefaultColumns(entity)
		require.NotEmpty(t, cols, "entity %s", entity)
		assert.Equal(t, domain.IdentifierField, cols[0].Key)
		assert.True(t, cols[0].ReadOnly)
		for _, c := range cols {
			assert.NoError(t, c.Validate())
		}
	}
}
