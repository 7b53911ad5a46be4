package ports

import "context"

// GridSurface defines the interface for the 2-D cell matrix the engine
// renders into: a header row plus data rows, per-cell notes, and
// presentation rules on the tracking column. Row and column indices are
// zero-based; row 0 is the first data row below the header.
type GridSurface interface {
	// Read returns the header row and all data rows of a sheet.
	Read(ctx context.Context, sheetID string) (header []string, rows [][]string, err error)

	// Replace fully replaces the sheet contents with a header row and data
	// rows. It is never a diff-merge.
	Replace(ctx context.Context, sheetID string, header []string, rows [][]string) error

	// UpdateCell writes a single cell of a data row.
	UpdateCell(ctx context.Context, sheetID string, row, col int, value string) error

	// SetNote attaches a note to a data row cell, replacing any prior note.
	SetNote(ctx context.Context, sheetID string, row, col int, note string) error

	// ApplyStatusFormat installs status color-coding, a validation rule
	// restricted to the allowed values, and borders on the given column of
	// the first rowCount data rows. Non-data rows are left untouched.
	ApplyStatusFormat(ctx context.Context, sheetID string, col int, rowCount int, allowed []string) error
}
