package domain

// SyncStatus is the per-row synchronization state shown in the tracking
// column.
type SyncStatus string

const (
	StatusNotModified SyncStatus = "Not Modified"
	StatusModified    SyncStatus = "Modified"
	StatusSynced      SyncStatus = "Synced"
	StatusError       SyncStatus = "Error"
)

// StatusColumnHeader is the header text of the tracking column. The column
// is always re-located by this text; cached positions are hints only.
const StatusColumnHeader = "Sync Status"

// AllSyncStatuses returns the four status values in display order, used to
// restrict the tracking column's validation rule.
func AllSyncStatuses() []SyncStatus {
	return []SyncStatus{StatusNotModified, StatusModified, StatusSynced, StatusError}
}

// SyncStatusStrings returns the status values as plain strings.
func SyncStatusStrings() []string {
	statuses := AllSyncStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// ParseSyncStatus converts cell text into a SyncStatus.
func ParseSyncStatus(s string) (SyncStatus, bool) {
	for _, known := range AllSyncStatuses() {
		if s == string(known) {
			return known, true
		}
	}
	return "", false
}
