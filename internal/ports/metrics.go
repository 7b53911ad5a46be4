package ports

// SyncMetrics records reconciliation outcomes for observability.
type SyncMetrics interface {
	// PullCompleted records a finished pull and the number of rows written.
	PullCompleted(entity string, rows int)
	// PushRow records the outcome of one row's remote update.
	PushRow(entity string, success bool)
}
