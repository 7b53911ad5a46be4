package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
)

// RowTracker maintains the per-row sync status column. The column is
// always re-located by its header text; a cached position is only ever a
// hint, never a source of truth, so entity reconfiguration and column
// insertion cannot corrupt tracking.
type RowTracker struct {
	grid   ports.GridSurface
	kv     ports.KVStore
	logger zerolog.Logger
}

// NewRowTracker creates a new row tracker.
func NewRowTracker(grid ports.GridSurface, kv ports.KVStore, logger zerolog.Logger) *RowTracker {
	return &RowTracker{
		grid:   grid,
		kv:     kv,
		logger: logger.With().Str("service", "tracker").Logger(),
	}
}

func statusColKey(sheetID string) string {
	return "statuscol:" + sheetID
}

// SheetSnapshot is one consistent read of a sheet: header, data rows, and
// the resolved tracking column.
type SheetSnapshot struct {
	Header    []string
	Rows      [][]string
	StatusCol int
}

// Status returns the parsed sync status of a data row. Cells holding
// unknown text count as NotModified.
func (s *SheetSnapshot) Status(row int) domain.SyncStatus {
	if row < 0 || row >= len(s.Rows) || s.StatusCol >= len(s.Rows[row]) {
		return domain.StatusNotModified
	}
	status, ok := domain.ParseSyncStatus(s.Rows[row][s.StatusCol])
	if !ok {
		return domain.StatusNotModified
	}
	return status
}

// Snapshot reads the sheet and resolves the tracking column. A sheet
// without a tracking column is a configuration error: modified rows cannot
// be determined safely, so the caller must attempt nothing.
func (t *RowTracker) Snapshot(ctx context.Context, sheetID string) (*SheetSnapshot, error) {
	header, rows, err := t.grid.Read(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetID, err)
	}

	col, err := t.locateStatusColumn(ctx, sheetID, header)
	if err != nil {
		return nil, err
	}

	return &SheetSnapshot{Header: header, Rows: rows, StatusCol: col}, nil
}

// locateStatusColumn finds the tracking column by header text. The cached
// index is tried first as a shortcut, then verified against the header;
// a stale hint triggers a full scan.
func (t *RowTracker) locateStatusColumn(ctx context.Context, sheetID string, header []string) (int, error) {
	if raw, ok, err := t.kv.Get(ctx, ports.ScopeDocument, statusColKey(sheetID)); err == nil && ok {
		if hint, err := strconv.Atoi(raw); err == nil &&
			hint >= 0 && hint < len(header) && header[hint] == domain.StatusColumnHeader {
			return hint, nil
		}
	}

	for i, h := range header {
		if h == domain.StatusColumnHeader {
			if err := t.kv.Set(ctx, ports.ScopeDocument, statusColKey(sheetID), strconv.Itoa(i)); err != nil {
				t.logger.Warn().Err(err).Str("sheetId", sheetID).Msg("Failed to cache status column position")
			}
			return i, nil
		}
	}

	return 0, &domain.ConfigError{
		Op:     "locate status column",
		Reason: fmt.Sprintf("no %q column on sheet %s", domain.StatusColumnHeader, sheetID),
	}
}

// MarkEdited records a user edit: any cell write outside the tracking
// column marks the row Modified, whether or not the value changed. Edits
// are deliberately not diffed against prior content.
func (t *RowTracker) MarkEdited(ctx context.Context, sheetID string, row, col int) error {
	snap, err := t.Snapshot(ctx, sheetID)
	if err != nil {
		return err
	}
	if col == snap.StatusCol {
		return nil
	}
	if row < 0 || row >= len(snap.Rows) {
		return nil
	}
	return t.setStatusCell(ctx, sheetID, snap.StatusCol, row, domain.StatusModified, "")
}

// SetRowStatus sets one row's status and optional detail note. The
// reconciler uses it to record push outcomes.
func (t *RowTracker) SetRowStatus(ctx context.Context, sheetID string, statusCol, row int, status domain.SyncStatus, detail string) error {
	return t.setStatusCell(ctx, sheetID, statusCol, row, status, detail)
}

func (t *RowTracker) setStatusCell(ctx context.Context, sheetID string, statusCol, row int, status domain.SyncStatus, detail string) error {
	if err := t.grid.UpdateCell(ctx, sheetID, row, statusCol, string(status)); err != nil {
		return fmt.Errorf("failed to set row %d status: %w", row, err)
	}
	if detail != "" {
		// the note survives dialog dismissal, unlike the push summary
		if err := t.grid.SetNote(ctx, sheetID, row, statusCol, detail); err != nil {
			t.logger.Warn().Err(err).Int("row", row).Msg("Failed to attach status note")
		}
	}
	return nil
}

// ResetAll sets every data row to the given status, used after a pull.
func (t *RowTracker) ResetAll(ctx context.Context, sheetID string, status domain.SyncStatus) error {
	snap, err := t.Snapshot(ctx, sheetID)
	if err != nil {
		return err
	}
	for row := range snap.Rows {
		if err := t.setStatusCell(ctx, sheetID, snap.StatusCol, row, status, ""); err != nil {
			return err
		}
	}
	return nil
}
