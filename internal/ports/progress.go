package ports

// ProgressEvent reports the reconciler's advance through a pull or push
// run. The engine emits events; the surface layer subscribes.
type ProgressEvent struct {
	RunID     string `json:"runId"`
	Stage     string `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	RemoteID  string `json:"remoteId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Progress stages emitted by the reconciler.
const (
	StageFetching  = "fetching"
	StageWriting   = "writing"
	StagePushing   = "pushing"
	StageRowSynced = "row_synced"
	StageRowFailed = "row_failed"
	StageDone      = "done"
)

// ProgressSink receives progress events. Publish must never block the
// reconciler.
type ProgressSink interface {
	Publish(event ProgressEvent)
}
