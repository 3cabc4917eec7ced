package store

import "time"

// Event kinds recorded in the history ledger.
const (
	KindInstall = "install"
	KindUpdate  = "update"
	KindRestore = "restore"
)

// Event outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Event records one install, update, or restore run.
type Event struct {
	ID        int64
	Kind      string // install, update, restore
	Version   string // Perch tag involved, if any
	Outcome   string // ok or failed
	Detail    string
	CreatedAt time.Time
}

// BackupRecord is the audit row for one backup attempt. The directory
// on disk is the source of truth; rows outlive rotated directories so
// the history stays complete.
type BackupRecord struct {
	ID        int64
	Path      string
	Reason    string
	Verified  bool
	CreatedAt time.Time
}
