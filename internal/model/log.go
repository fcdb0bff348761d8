package model

// LogEntry is a dated free-text note on a project.
//
// Date is the "day" grouping key, not a unique key: several entries may share
// the same (ProjectID, Date). Content may embed [ref:<id>] markers; it is
// stored and returned byte-for-byte.
type LogEntry struct {
	ID        int64  `json:"id"        db:"log_id"`
	ProjectID int64  `json:"projectId" db:"project_id"`
	Date      string `json:"date"      db:"timestamp"`
	Content   string `json:"content"   db:"content"`
}

// LatestLog picks the entry shown for a day: the most recently created one,
// i.e. the highest identity. ok is false when entries is empty.
//
// Older entries of the same day stay in storage; they are only removed
// together, by deleting the whole day.
func LatestLog(entries []LogEntry) (latest LogEntry, ok bool) {
	for i, e := range entries {
		if i == 0 || e.ID > latest.ID {
			latest = e
		}
	}
	return latest, len(entries) > 0
}
