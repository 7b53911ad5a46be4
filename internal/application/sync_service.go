package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sheetsync-core-pipedrive-layer/internal/codec"
	"sheetsync-core-pipedrive-layer/internal/domain"
	"sheetsync-core-pipedrive-layer/internal/ports"
	"sheetsync-core-pipedrive-layer/internal/schema"
)

// SyncService orchestrates pull (remote to grid) and push (grid to remote)
// reconciliation. Pulls and pushes run as a sequence of synchronous remote
// calls; each row's push is an independent call and partial success is an
// accepted outcome, not a failure state.
type SyncService struct {
	crm      ports.CRMClient
	prefs    *PreferenceService
	writer   *GridWriter
	tracker  *RowTracker
	fields   *FieldRegistry
	kv       ports.KVStore
	metrics  ports.SyncMetrics
	progress ports.ProgressSink
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSyncService creates a new sync service.
func NewSyncService(
	crm ports.CRMClient,
	prefs *PreferenceService,
	writer *GridWriter,
	tracker *RowTracker,
	fields *FieldRegistry,
	kv ports.KVStore,
	metrics ports.SyncMetrics,
	progress ports.ProgressSink,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		crm:      crm,
		prefs:    prefs,
		writer:   writer,
		tracker:  tracker,
		fields:   fields,
		kv:       kv,
		metrics:  metrics,
		progress: progress,
		logger:   logger.With().Str("service", "sync").Logger(),
		now:      time.Now,
	}
}

// PullInput configures a pull run.
type PullInput struct {
	SheetID  string
	Entity   domain.EntityType
	FilterID int
	Limit    int
}

// PullResult summarizes a completed pull.
type PullResult struct {
	RunID   string `json:"runId"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// PushInput configures a push run.
type PushInput struct {
	SheetID string
	Entity  domain.EntityType
}

// RowFailure identifies one row whose remote update failed.
type RowFailure struct {
	RemoteID string `json:"remoteId"`
	Message  string `json:"message"`
}

// RunSummary reports a completed push: counts plus the failed ids and
// messages for the detail list.
type RunSummary struct {
	RunID     string       `json:"runId"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Failures  []RowFailure `json:"failures,omitempty"`
}

// Pull fetches remote records and renders them into the grid. When no
// column preference exists the sample record is flattened and the result
// saved as the initial preference; a flattening failure falls back to the
// entity's static default columns instead of failing the pull.
func (s *SyncService) Pull(ctx context.Context, in PullInput) (*PullResult, error) {
	if in.SheetID == "" || in.Entity == "" {
		return nil, &domain.ConfigError{Op: "pull", Reason: "sheet and entity must be configured"}
	}
	runID := uuid.New().String()
	log := s.logger.With().Str("runId", runID).Str("sheetId", in.SheetID).Str("entity", string(in.Entity)).Logger()

	// cache entries must never survive across operations
	s.fields.Clear(ctx)
	defs, err := s.fields.Definitions(ctx, in.Entity)
	if err != nil {
		log.Warn().Err(err).Msg("Proceeding without field definitions")
		defs = nil
	}

	s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageFetching})
	records, err := s.crm.FetchRecords(ctx, in.Entity, in.FilterID, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}

	cols, stored, err := s.prefs.Load(ctx, in.Entity, in.SheetID)
	if err != nil {
		return nil, err
	}
	if !stored && len(records) > 0 {
		flattened, ferr := schema.NewFlattener().WithDefinitions(defs).Flatten(records[0], in.Entity)
		if ferr != nil {
			// recovered locally: a malformed sample never fails the pull
			log.Warn().Err(ferr).Msg("Schema extraction failed, using default columns")
			flattened = schema.DefaultColumns(in.Entity)
		}
		cols = flattened
		if serr := s.prefs.Save(ctx, in.Entity, in.SheetID, cols); serr != nil {
			log.Warn().Err(serr).Msg("Could not persist discovered columns")
		}
	}

	initial := domain.StatusSynced
	if s.trackingNewlyEnabled(ctx, in.SheetID) {
		initial = domain.StatusNotModified
	}

	s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageWriting, Total: len(records)})
	cdc := codec.New(defs)
	err = s.writer.Write(ctx, in.SheetID, cols, records, cdc, WriteOptions{
		IncludeTimestamp: true,
		IncludeStatus:    true,
		InitialStatus:    initial,
		Timestamp:        s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.setSheetMeta(ctx, "lastpull:"+in.SheetID)
	s.metrics.PullCompleted(string(in.Entity), len(records))
	s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageDone, Processed: len(records), Total: len(records)})

	log.Info().Int("rows", len(records)).Int("columns", len(cols)).Msg("Pull completed")
	return &PullResult{RunID: runID, Rows: len(records), Columns: len(cols)}, nil
}

// Push sends every Modified row back to the remote, one update call per
// row. A missing tracking column is fatal and nothing is attempted; a
// failing row is marked Error with the API message and never aborts the
// rest of the batch.
func (s *SyncService) Push(ctx context.Context, in PushInput) (*RunSummary, error) {
	if in.SheetID == "" || in.Entity == "" {
		return nil, &domain.ConfigError{Op: "push", Reason: "sheet and entity must be configured"}
	}
	runID := uuid.New().String()
	log := s.logger.With().Str("runId", runID).Str("sheetId", in.SheetID).Str("entity", string(in.Entity)).Logger()

	s.fields.Clear(ctx)
	defs, err := s.fields.Definitions(ctx, in.Entity)
	if err != nil {
		log.Warn().Err(err).Msg("Proceeding without field definitions")
		defs = nil
	}
	cdc := codec.New(defs)

	snap, err := s.tracker.Snapshot(ctx, in.SheetID)
	if err != nil {
		// no tracking column means modified rows cannot be determined
		return nil, err
	}

	hmap, err := s.prefs.HeaderMap(ctx, in.Entity, in.SheetID)
	if err != nil {
		log.Warn().Err(err).Msg("Header map unavailable, using fallback field names")
		hmap = nil
	}
	fallback := schema.FallbackFieldKeys(in.Entity)

	resolve := func(header string) string {
		if key, ok := hmap.Resolve(header); ok {
			return key
		}
		return fallback[header]
	}

	idCol := -1
	for i, h := range snap.Header {
		if i != snap.StatusCol && resolve(h) == domain.IdentifierField {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, &domain.ConfigError{Op: "push", Reason: "no identifier column on sheet " + in.SheetID}
	}

	var modified []int
	for row := range snap.Rows {
		if snap.Status(row) == domain.StatusModified {
			modified = append(modified, row)
		}
	}

	summary := &RunSummary{RunID: runID, Total: len(modified)}
	s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StagePushing, Total: len(modified)})

	for i, row := range modified {
		remoteID := ""
		if idCol < len(snap.Rows[row]) {
			remoteID = snap.Rows[row][idCol]
		}
		if remoteID == "" {
			summary.Skipped++
			log.Warn().Int("row", row).Msg("Skipping row without resolvable identifier")
			continue
		}

		payload := s.buildPayload(snap, row, idCol, in.Entity, resolve, cdc, log)
		if len(payload) == 0 {
			// nothing pushable on the row; treat it as already in sync
			summary.Skipped++
			if err := s.tracker.SetRowStatus(ctx, in.SheetID, snap.StatusCol, row, domain.StatusSynced, ""); err != nil {
				log.Warn().Err(err).Int("row", row).Msg("Failed to update row status")
			}
			continue
		}

		_, err := s.crm.UpdateRecord(ctx, in.Entity, remoteID, payload)
		if err != nil {
			// per-row recovery: mark the row and continue the batch
			summary.Failed++
			summary.Failures = append(summary.Failures, RowFailure{RemoteID: remoteID, Message: err.Error()})
			s.metrics.PushRow(string(in.Entity), false)
			s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageRowFailed, Processed: i + 1, Total: len(modified), RemoteID: remoteID, Error: err.Error()})
			if serr := s.tracker.SetRowStatus(ctx, in.SheetID, snap.StatusCol, row, domain.StatusError, err.Error()); serr != nil {
				log.Warn().Err(serr).Int("row", row).Msg("Failed to record row error")
			}
			log.Error().Err(err).Str("remoteId", remoteID).Msg("Row push failed")
			continue
		}

		summary.Succeeded++
		s.metrics.PushRow(string(in.Entity), true)
		s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageRowSynced, Processed: i + 1, Total: len(modified), RemoteID: remoteID})
		note := "Synced at " + s.now().Format(time.RFC3339)
		if serr := s.tracker.SetRowStatus(ctx, in.SheetID, snap.StatusCol, row, domain.StatusSynced, note); serr != nil {
			log.Warn().Err(serr).Int("row", row).Msg("Failed to update row status")
		}
	}

	s.setSheetMeta(ctx, "lastpush:"+in.SheetID)
	if err := s.writer.RefreshStatusFormat(ctx, in.SheetID, snap.StatusCol, len(snap.Rows)); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh status styling")
	}
	s.publish(ports.ProgressEvent{RunID: runID, Stage: ports.StageDone, Processed: len(modified), Total: len(modified)})

	log.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Push completed")
	return summary, nil
}

// buildPayload converts one modified row into the remote update payload:
// every non-empty, non-status cell whose header resolves to an editable
// field, encoded by field classification, placed at the payload root or
// under custom_fields per the namespace contract.
func (s *SyncService) buildPayload(
	snap *SheetSnapshot,
	row, idCol int,
	entity domain.EntityType,
	resolve func(string) string,
	cdc *codec.Codec,
	log zerolog.Logger,
) map[string]any {
	payload := make(map[string]any)
	cells := snap.Rows[row]

	for col, header := range snap.Header {
		if col == snap.StatusCol || col == idCol || col >= len(cells) {
			continue
		}
		cell := cells[col]
		if cell == "" {
			continue
		}
		key := resolve(header)
		if key == "" || key == domain.IdentifierField {
			continue
		}
		if schema.IsReadOnlyField(key, entity) {
			continue
		}
		value, err := cdc.Encode(key, cell)
		if err != nil {
			// the field is skipped, the row is not aborted
			log.Debug().Err(err).Str("field", key).Int("row", row).Msg("Skipping unencodable cell")
			continue
		}
		domain.SetPathValue(payload, key, value)
	}
	return payload
}

// trackingNewlyEnabled reports whether this sheet has never had sync
// tracking before, flipping the flag as a side effect.
func (s *SyncService) trackingNewlyEnabled(ctx context.Context, sheetID string) bool {
	key := "tracking:" + sheetID
	_, ok, err := s.kv.Get(ctx, ports.ScopeDocument, key)
	if err != nil || ok {
		return false
	}
	if err := s.kv.Set(ctx, ports.ScopeDocument, key, "enabled"); err != nil {
		s.logger.Warn().Err(err).Str("sheetId", sheetID).Msg("Failed to persist tracking flag")
	}
	return true
}

func (s *SyncService) setSheetMeta(ctx context.Context, key string) {
	if err := s.kv.Set(ctx, ports.ScopeDocument, key, s.now().Format(time.RFC3339)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to persist sync timestamp")
	}
}

func (s *SyncService) publish(event ports.ProgressEvent) {
	if s.progress != nil {
		s.progress.Publish(event)
	}
}
