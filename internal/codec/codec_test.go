package codec

import (
	"errors"
	"reflect"
	"testing"

	"sheetsync-core-pipedrive-layer/internal/domain"
)

const setHash = "f1e2d3c4b5a6f1e2d3c4b5a6f1e2d3c4"

func testDefs() []domain.FieldDefinition {
	return []domain.FieldDefinition{
		{
			Key:       setHash,
			Name:      "Regions",
			FieldType: domain.FieldTypeSet,
			Options: []domain.FieldOption{
				{ID: 10, Label: "North"},
				{ID: 11, Label: "South"},
				{ID: 12, Label: "West"},
			},
		},
		{
			Key:       "status_field",
			FieldType: domain.FieldTypeEnum,
			Options: []domain.FieldOption{
				{ID: 1, Label: "Open"},
				{ID: 2, Label: "Closed"},
			},
		},
		{Key: "expected_close_date", FieldType: domain.FieldTypeDate},
		{Key: "due_time", FieldType: domain.FieldTypeTime},
	}
}

func TestEncodeMultiOption(t *testing.T) {
	c := New(testDefs())

	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{"all resolvable", "North, South", []int{10, 11}},
		{"unresolvable dropped not substituted", "North, Atlantis, West", []int{10, 12}},
		{"single", "South", []int{11}},
		{"empty", "", nil},
		{"all unresolvable", "Atlantis", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Encode("custom_fields."+setHash, tt.raw)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			ids, _ := got.([]int)
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("Encode(%q) = %v, want %v", tt.raw, ids, tt.want)
			}
		})
	}
}

func TestEncodeEnum(t *testing.T) {
	c := New(testDefs())
	got, err := c.Encode("status_field", "Closed")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != 2 {
		t.Errorf("Encode(Closed) = %v, want 2", got)
	}

	_, err = c.Encode("status_field", "Nonexistent")
	var encErr *domain.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestEncodeDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"2026-02-14", "2026-02-14", false},
		{"02/14/2026", "2026-02-14", false},
		{"Feb 14, 2026", "2026-02-14", false},
		{"14.02.2026", "2026-02-14", false},
		{"2026-02-14T09:30:00Z", "2026-02-14", false},
		{"not a date", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := EncodeDate(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("EncodeDate(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("EncodeDate(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EncodeDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// Encoding a grid date then decoding the remote-accepted string must
// reproduce the same calendar date.
func TestDateCodecRoundTrip(t *testing.T) {
	grid := []string{"2026-02-14", "02/14/2026", "Feb 14, 2026"}
	for _, raw := range grid {
		encoded, err := EncodeDate(raw)
		if err != nil {
			t.Fatalf("EncodeDate(%q): %v", raw, err)
		}
		if DecodeDate(encoded) != "2026-02-14" {
			t.Errorf("round trip of %q lost the calendar date: %q", raw, DecodeDate(encoded))
		}
	}
}

func TestEncodeTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"09:30", "09:30:00", false},
		{"9:30", "09:30:00", false},
		{"9:05:07", "09:05:07", false},
		{"9:05 PM", "21:05:00", false},
		{"12:00 AM", "00:00:00", false},
		{"12:30 PM", "12:30:00", false},
		{"11:59:59 pm", "23:59:59", false},
		{"25:00", "", true},
		{"noon", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := EncodeTime(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("EncodeTime(%q) expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("EncodeTime(%q): %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EncodeTime(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestEncodePassThrough(t *testing.T) {
	c := New(testDefs())
	got, err := c.Encode("title", "Acme Deal")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != "Acme Deal" {
		t.Errorf("Encode(title) = %v", got)
	}
}

func TestEncodeUnparseableDate(t *testing.T) {
	c := New(testDefs())
	_, err := c.Encode("expected_close_date", "whenever")
	var encErr *domain.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if encErr.Field != "expected_close_date" {
		t.Errorf("EncodingError.Field = %q", encErr.Field)
	}
}

func TestDecode(t *testing.T) {
	c := New(testDefs())

	tests := []struct {
		name  string
		field string
		value any
		want  string
	}{
		{"nil", "title", nil, ""},
		{"string", "title", "Acme", "Acme"},
		{"integral number", "value", float64(200), "200"},
		{"fractional number", "value", 12.5, "12.5"},
		{"bool", "done", true, "true"},
		{"option ids to labels", "custom_fields." + setHash, []any{float64(10), float64(12)}, "North, West"},
		{"single option id", "status_field", float64(2), "Closed"},
		{"monetary composite", "value", map[string]any{"value": float64(10), "currency": "EUR"}, "10 EUR"},
		{"relation object", "owner_id", map[string]any{"id": float64(7), "name": "Ada"}, "Ada"},
		{"address composite", "address", map[string]any{"locality": "Springfield", "formatted_address": "Main St, Springfield"}, "Main St, Springfield"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Decode(tt.field, tt.value); got != tt.want {
				t.Errorf("Decode(%q, %v) = %q, want %q", tt.field, tt.value, got, tt.want)
			}
		})
	}
}

func TestDecodeCellReadsWholeOptionSet(t *testing.T) {
	c := New(testDefs())
	rec := domain.Record{
		"custom_fields": map[string]any{
			setHash: []any{float64(10), float64(11)},
		},
	}

	got := c.DecodeCell(rec, "custom_fields."+setHash)
	if got != "North, South" {
		t.Errorf("DecodeCell = %q, want %q", got, "North, South")
	}
}

func TestDecodeCellFallsBackToPathConventions(t *testing.T) {
	c := New(testDefs())
	rec := domain.Record{
		"title": "Acme",
		"email": []any{
			map[string]any{"label": "work", "value": "a@acme.test"},
		},
	}

	if got := c.DecodeCell(rec, "title"); got != "Acme" {
		t.Errorf("DecodeCell(title) = %q, want %q", got, "Acme")
	}
	// non-option arrays keep the first-element collapse
	if got := c.DecodeCell(rec, "email"); got != "a@acme.test" {
		t.Errorf("DecodeCell(email) = %q, want %q", got, "a@acme.test")
	}
}

func TestDecodeOptionsCommaSeparatedString(t *testing.T) {
	c := New(testDefs())

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"id string pair", "10,11", "North, South"},
		{"id string with spaces", "10, 12", "North, West"},
		{"single id string", "11", "South"},
		{"unresolvable string unchanged", "98,99", "98,99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Decode("custom_fields."+setHash, tt.value); got != tt.want {
				t.Errorf("Decode(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
