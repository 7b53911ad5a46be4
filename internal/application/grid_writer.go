package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/codec"
	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

// TimestampColumnHeader is the header of the optional last-synced column.
const TimestampColumnHeader = "Last Synced"

// WriteOptions control the optional trailing columns of a grid write.
type WriteOptions struct {
	IncludeTimestamp bool
	IncludeStatus    bool
	InitialStatus    domain.SyncStatus
	Timestamp        time.Time
}

// GridWriter renders records into the grid surface, fully replacing prior
// contents.
type GridWriter struct {
	grid   ports.GridSurface
	logger zerolog.Logger
}

// NewGridWriter creates a new grid writer.
func NewGridWriter(grid ports.GridSurface, logger zerolog.Logger) *GridWriter {
	return &GridWriter{
		grid:   grid,
		logger: logger.With().Str("service", "grid_writer").Logger(),
	}
}

// Write replaces the sheet with a header row and one row per record. Cell
// values pass through the codec's decode path; status formatting is
// applied to data rows only, so separator or timestamp rows never pick up
// status chrome.
func (w *GridWriter) Write(ctx context.Context, sheetID string, cols []domain.ColumnDescriptor, records []domain.Record, cdc *codec.Codec, opts WriteOptions) error {
	header := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		header = append(header, c.Header())
	}
	if opts.IncludeTimestamp {
		header = append(header, TimestampColumnHeader)
	}
	statusCol := -1
	if opts.IncludeStatus {
		statusCol = len(header)
		header = append(header, domain.StatusColumnHeader)
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	initial := opts.InitialStatus
	if initial == "" {
		initial = domain.StatusSynced
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, c := range cols {
			row = append(row, cdc.DecodeCell(rec, c.Key))
		}
		if opts.IncludeTimestamp {
			row = append(row, ts.Format(time.RFC3339))
		}
		if opts.IncludeStatus {
			row = append(row, string(initial))
		}
		rows = append(rows, row)
	}

	if err := w.grid.Replace(ctx, sheetID, header, rows); err != nil {
		return fmt.Errorf("failed to write grid: %w", err)
	}

	if statusCol >= 0 {
		if err := w.RefreshStatusFormat(ctx, sheetID, statusCol, len(rows)); err != nil {
			return err
		}
	}

	w.logger.Info().
		Str("sheetId", sheetID).
		Int("rows", len(rows)).
		Int("columns", len(header)).
		Msg("Grid written")
	return nil
}

// RefreshStatusFormat reapplies status color-coding, the four-value
// validation rule, and borders on the tracking column's data rows.
func (w *GridWriter) RefreshStatusFormat(ctx context.Context, sheetID string, statusCol, rowCount int) error {
	if err := w.grid.ApplyStatusFormat(ctx, sheetID, statusCol, rowCount, domain.SyncStatusStrings()); err != nil {
		return fmt.Errorf("failed to apply status formatting: %w", err)
	}
	return nil
}
