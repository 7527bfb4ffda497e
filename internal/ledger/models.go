package ledger

import (
	"strings"
	"time"
)

// Status is the terminal classification decision for one file. Entries never
// transition after creation.
type Status string

const (
	// StatusReady marks a file with a planned destination awaiting apply.
	StatusReady Status = "ready"
	// StatusDuplicate marks a file whose content fingerprint was already seen.
	StatusDuplicate Status = "duplicate"
	// StatusIgnored marks a file rejected by the extension allow-list.
	StatusIgnored Status = "ignored"
	// StatusFailed marks a file that could not be classified.
	StatusFailed Status = "failed"
)

var allStatuses = []Status{
	StatusReady,
	StatusDuplicate,
	StatusIgnored,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Entry is one classification decision persisted in SQLite.
type Entry struct {
	ID                int64
	RunID             string
	SourcePath        string
	Fingerprint       string
	FingerprintSource string
	CapturedAt        time.Time
	Synthetic         bool
	DestinationPath   string
	Status            Status
	ErrorMessage      string
	CreatedAt         time.Time
}

// Run records one import run's identity and scope.
type Run struct {
	ID         string
	Label      string
	SourceDir  string
	TargetDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Applied    bool
}

// ApplyRecord captures the outcome of one entry's apply action. SourcePath
// is joined in from the entry for display.
type ApplyRecord struct {
	EntryID      int64
	SourcePath   string
	AppliedAt    time.Time
	FinalPath    string
	ErrorMessage string
}
