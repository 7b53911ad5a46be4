package domain

import (
	"strings"
	"testing"
)

func TestDecodeDescriptorsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "unknown field",
			input:   `[{"key":"title","displayName":"Title","readOnly":false,"category":"Main Fields","bogus":1}]`,
			wantErr: "bogus",
		},
		{
			name:    "missing key",
			input:   `[{"displayName":"Title","category":"Main Fields"}]`,
			wantErr: "missing key",
		},
		{
			name:    "nested without parent",
			input:   `[{"key":"owner_id.name","displayName":"Owner Name","isNested":true,"category":"Main Fields"}]`,
			wantErr: "without parent",
		},
		{
			name:    "parent without nested flag",
			input:   `[{"key":"owner_id.name","displayName":"Owner Name","parentKey":"owner_id","category":"Main Fields"}]`,
			wantErr: "not nested",
		},
		{
			name:    "not an array",
			input:   `{"key":"title"}`,
			wantErr: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDescriptors([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	cols := []ColumnDescriptor{
		{Key: "id", DisplayName: "ID", ReadOnly: true, Category: CategoryMain},
		{Key: "owner_id.name", DisplayName: "Owner Name", IsNested: true, ParentKey: "owner_id", ReadOnly: true, Category: CategoryMain},
		{Key: "title", DisplayName: "Title", Category: CategoryMain, CustomName: "Deal"},
	}
	data, err := EncodeDescriptors(cols)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeDescriptors(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(cols) {
		t.Fatalf("round trip lost descriptors: got %d, want %d", len(got), len(cols))
	}
	for i := range cols {
		if got[i] != cols[i] {
			t.Errorf("descriptor %d = %+v, want %+v", i, got[i], cols[i])
		}
	}
}

func TestBuildHeaderFieldMap(t *testing.T) {
	cols := []ColumnDescriptor{
		{Key: "title", DisplayName: "Title", CustomName: "Deal Name", Category: CategoryMain},
		{Key: "value", DisplayName: "Value", Category: CategoryMain},
		{Key: "status", DisplayName: "Value", Category: CategoryMain}, // header collision
	}
	m := BuildHeaderFieldMap(cols)

	// custom name wins over display name
	if key, ok := m.Resolve("Deal Name"); !ok || key != "title" {
		t.Errorf("Resolve(Deal Name) = %q, %v", key, ok)
	}
	if _, ok := m.Resolve("Title"); ok {
		t.Error("generated name still resolvable after rename")
	}
	// first descriptor wins a header collision
	if key, _ := m.Resolve("Value"); key != "value" {
		t.Errorf("collision resolved to %q, want first occurrence", key)
	}
}

func TestColumnHeaderPriority(t *testing.T) {
	c := ColumnDescriptor{Key: "title", DisplayName: "Title"}
	if c.Header() != "Title" {
		t.Errorf("Header() = %q", c.Header())
	}
	c.CustomName = "Deal"
	if c.Header() != "Deal" {
		t.Errorf("Header() with custom name = %q", c.Header())
	}
}

func TestParseSyncStatus(t *testing.T) {
	for _, s := range AllSyncStatuses() {
		got, ok := ParseSyncStatus(string(s))
		if !ok || got != s {
			t.Errorf("ParseSyncStatus(%q) = %q, %v", s, got, ok)
		}
	}
	if _, ok := ParseSyncStatus("Pending"); ok {
		t.Error("unexpected parse of unknown status")
	}
}
