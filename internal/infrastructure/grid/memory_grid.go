package grid

import (
	"context"
	"fmt"
	"sync"

	"sheetsync-core-pipedrive-layer/internal/ports"
)

// MemoryGrid implements GridSurface in process memory. The add-on's
// spreadsheet host holds the authoritative grid; this implementation backs
// local development and request-scoped staging of grid writes before they
// are flushed to the host.
type MemoryGrid struct {
	mu     sync.RWMutex
	sheets map[string]*sheet
}

type sheet struct {
	header  []string
	rows    [][]string
	notes   map[[2]int]string
	formats []statusFormat
}

type statusFormat struct {
	col      int
	rowCount int
	allowed  []string
}

// NewMemoryGrid creates an empty in-memory grid surface.
func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{sheets: make(map[string]*sheet)}
}

func (g *MemoryGrid) getSheet(sheetID string) (*sheet, error) {
	s, ok := g.sheets[sheetID]
	if !ok {
		return nil, fmt.Errorf("sheet %s does not exist", sheetID)
	}
	return s, nil
}

// Read returns a copy of the sheet's header and data rows.
func (g *MemoryGrid) Read(_ context.Context, sheetID string) ([]string, [][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.sheets[sheetID]
	if !ok {
		return nil, nil, nil
	}

	header := append([]string(nil), s.header...)
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		rows[i] = append([]string(nil), r...)
	}
	return header, rows, nil
}

// Replace swaps the sheet's entire contents. Notes and status formats from
// the prior contents are discarded with it.
func (g *MemoryGrid) Replace(_ context.Context, sheetID string, header []string, rows [][]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sheets[sheetID] = &sheet{
		header: append([]string(nil), header...),
		rows:   copyRows(rows),
		notes:  make(map[[2]int]string),
	}
	return nil
}

// UpdateCell writes one data cell, growing the row if the column lies past
// its current end.
func (g *MemoryGrid) UpdateCell(_ context.Context, sheetID string, row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.getSheet(sheetID)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(s.rows) {
		return fmt.Errorf("row %d out of range on sheet %s", row, sheetID)
	}
	if col < 0 {
		return fmt.Errorf("column %d out of range on sheet %s", col, sheetID)
	}
	for len(s.rows[row]) <= col {
		s.rows[row] = append(s.rows[row], "")
	}
	s.rows[row][col] = value
	return nil
}

// SetNote attaches a note to a cell, replacing any prior note there.
func (g *MemoryGrid) SetNote(_ context.Context, sheetID string, row, col int, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.getSheet(sheetID)
	if err != nil {
		return err
	}
	s.notes[[2]int{row, col}] = note
	return nil
}

// ApplyStatusFormat records the styling request for the tracking column.
func (g *MemoryGrid) ApplyStatusFormat(_ context.Context, sheetID string, col, rowCount int, allowed []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, err := g.getSheet(sheetID)
	if err != nil {
		return err
	}
	s.formats = append(s.formats, statusFormat{
		col:      col,
		rowCount: rowCount,
		allowed:  append([]string(nil), allowed...),
	})
	return nil
}

// Note returns the note attached to a cell, if any.
func (g *MemoryGrid) Note(sheetID string, row, col int) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.sheets[sheetID]
	if !ok {
		return "", false
	}
	note, ok := s.notes[[2]int{row, col}]
	return note, ok
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

var _ ports.GridSurface = (*MemoryGrid)(nil)
