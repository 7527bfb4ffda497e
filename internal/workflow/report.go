package workflow

import (
	"time"

	"shutterbox/internal/apply"
	"shutterbox/internal/ledger"
)

// Report aggregates the outcome of one run for display.
type Report struct {
	RunID     string
	Label     string
	SourceDir string
	TargetDir string

	Scanned int
	Counts  map[ledger.Status]int
	Undated int

	Applied        bool
	Apply          apply.Summary
	ReclaimedBytes int64
	Elapsed        time.Duration
}

// NewReport starts an empty report for the given run.
func NewReport(run *ledger.Run, targetDir string) *Report {
	return &Report{
		RunID:     run.ID,
		Label:     run.Label,
		SourceDir: run.SourceDir,
		TargetDir: targetDir,
		Counts:    make(map[ledger.Status]int),
	}
}

// Record tallies one classified entry.
func (r *Report) Record(entry *ledger.Entry) {
	r.Scanned++
	r.Counts[entry.Status]++
	if entry.Status == ledger.StatusReady && entry.Synthetic {
		r.Undated++
	}
}

// Ready returns the number of entries planned for placement.
func (r *Report) Ready() int {
	return r.Counts[ledger.StatusReady]
}
