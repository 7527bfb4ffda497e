package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"shutterbox/internal/ledger"
	"shutterbox/internal/testsupport"
)

func readyEntry(runID, source, fingerprint, destination string, capturedAt time.Time) *ledger.Entry {
	return &ledger.Entry{
		RunID:             runID,
		SourcePath:        source,
		Fingerprint:       fingerprint,
		FingerprintSource: "thumbnail",
		CapturedAt:        capturedAt,
		DestinationPath:   destination,
		Status:            ledger.StatusReady,
	}
}

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	if run.ID == "" {
		t.Fatal("expected run ID to be assigned")
	}

	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/2020/a.jpg", capturedAt)
	inserted, err := store.InsertEntry(ctx, entry)
	if err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected entry to be inserted")
	}
	if entry.ID == 0 {
		t.Fatal("expected entry ID to be assigned")
	}

	fetched, err := store.FindBySource(ctx, "/tmp/source/a.jpg")
	if err != nil {
		t.Fatalf("FindBySource failed: %v", err)
	}
	if fetched == nil || fetched.ID != entry.ID {
		t.Fatalf("unexpected fetched entry: %#v", fetched)
	}
	if !fetched.CapturedAt.Equal(capturedAt) {
		t.Fatalf("expected capture time %v, got %v", capturedAt, fetched.CapturedAt)
	}
	if fetched.Status != ledger.StatusReady {
		t.Fatalf("expected ready status, got %s", fetched.Status)
	}

	found, err := store.FindByFingerprint(ctx, "fp-a")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found == nil || found.ID != entry.ID {
		t.Fatalf("expected to find inserted entry, got %#v", found)
	}
}

func TestFindByFingerprintIgnoresEmptyDigest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	ignored := &ledger.Entry{
		RunID:      run.ID,
		SourcePath: "/tmp/source/readme.txt",
		Status:     ledger.StatusIgnored,
	}
	if _, err := store.InsertEntry(ctx, ignored); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}

	found, err := store.FindByFingerprint(ctx, "")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no match for empty digest, got %#v", found)
	}
}

func TestInsertEntryIdempotentOnSourcePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	first := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if inserted, err := store.InsertEntry(ctx, first); err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}

	second := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-other", "/tmp/library/other.jpg", capturedAt)
	inserted, err := store.InsertEntry(ctx, second)
	if err != nil {
		t.Fatalf("second insert returned error: %v", err)
	}
	if inserted {
		t.Fatal("expected repeat source path to be a no-op")
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestInsertEntryDestinationCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	first := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/shared.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	second := readyEntry(run.ID, "/tmp/source/b.jpg", "fp-b", "/tmp/library/shared.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, second); !errors.Is(err, ledger.ErrDestinationCollision) {
		t.Fatalf("expected ErrDestinationCollision, got %v", err)
	}
}

func TestInsertEntryFingerprintCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	first := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-shared", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, first); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	second := readyEntry(run.ID, "/tmp/source/b.jpg", "fp-shared", "/tmp/library/b.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, second); !errors.Is(err, ledger.ErrFingerprintCollision) {
		t.Fatalf("expected ErrFingerprintCollision, got %v", err)
	}
}

func TestDuplicateRowsMayShareFingerprint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	original := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-shared", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, original); err != nil {
		t.Fatalf("insert original failed: %v", err)
	}

	duplicate := &ledger.Entry{
		RunID:             run.ID,
		SourcePath:        "/tmp/source/a-copy.jpg",
		Fingerprint:       "fp-shared",
		FingerprintSource: "thumbnail",
		Status:            ledger.StatusDuplicate,
	}
	inserted, err := store.InsertEntry(ctx, duplicate)
	if err != nil {
		t.Fatalf("insert duplicate failed: %v", err)
	}
	if !inserted {
		t.Fatal("expected duplicate row to insert")
	}

	found, err := store.FindByFingerprint(ctx, "fp-shared")
	if err != nil {
		t.Fatalf("FindByFingerprint failed: %v", err)
	}
	if found == nil || found.ID != original.ID {
		t.Fatalf("expected fingerprint lookup to return the oldest row, got %#v", found)
	}
}

func TestCaptureTimeCountsExcludeSynthetic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	epoch := time.Unix(0, 0).UTC()

	dated := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, dated); err != nil {
		t.Fatalf("insert dated failed: %v", err)
	}

	undated := readyEntry(run.ID, "/tmp/source/b.png", "fp-b", "/tmp/library/undated-1.png", epoch)
	undated.FingerprintSource = "content"
	undated.Synthetic = true
	if _, err := store.InsertEntry(ctx, undated); err != nil {
		t.Fatalf("insert undated failed: %v", err)
	}

	count, err := store.CountByCaptureTime(ctx, capturedAt)
	if err != nil {
		t.Fatalf("CountByCaptureTime failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 dated entry, got %d", count)
	}

	count, err = store.CountByCaptureTime(ctx, epoch)
	if err != nil {
		t.Fatalf("CountByCaptureTime failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected synthetic rows excluded, got %d", count)
	}

	undatedCount, err := store.CountUndated(ctx)
	if err != nil {
		t.Fatalf("CountUndated failed: %v", err)
	}
	if undatedCount != 1 {
		t.Fatalf("expected 1 undated entry, got %d", undatedCount)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	a := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, a); err != nil {
		t.Fatalf("insert a failed: %v", err)
	}
	b := &ledger.Entry{
		RunID:      run.ID,
		SourcePath: "/tmp/source/readme.txt",
		Status:     ledger.StatusIgnored,
	}
	if _, err := store.InsertEntry(ctx, b); err != nil {
		t.Fatalf("insert b failed: %v", err)
	}
	c := &ledger.Entry{
		RunID:        run.ID,
		SourcePath:   "/tmp/source/broken.jpg",
		Status:       ledger.StatusFailed,
		ErrorMessage: "unreadable",
	}
	if _, err := store.InsertEntry(ctx, c); err != nil {
		t.Fatalf("insert c failed: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != a.ID || entries[1].ID != b.ID || entries[2].ID != c.ID {
		t.Fatalf("expected insertion order, got IDs %d,%d,%d", entries[0].ID, entries[1].ID, entries[2].ID)
	}

	filtered, err := store.List(ctx, ledger.StatusIgnored, ledger.StatusFailed)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(filtered))
	}

	failed, err := store.EntriesByStatus(ctx, ledger.StatusFailed)
	if err != nil {
		t.Fatalf("EntriesByStatus failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ErrorMessage != "unreadable" {
		t.Fatalf("unexpected failed entries: %#v", failed)
	}
}

func TestListRunScopesToRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	first := testsupport.BeginRun(t, store, "/tmp/card-a", "/tmp/library")
	a := readyEntry(first.ID, "/tmp/card-a/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, a); err != nil {
		t.Fatalf("insert a failed: %v", err)
	}

	second := testsupport.BeginRun(t, store, "/tmp/card-b", "/tmp/library")
	b := readyEntry(second.ID, "/tmp/card-b/b.jpg", "fp-b", "/tmp/library/b.jpg", capturedAt.Add(time.Second))
	if _, err := store.InsertEntry(ctx, b); err != nil {
		t.Fatalf("insert b failed: %v", err)
	}
	c := &ledger.Entry{RunID: second.ID, SourcePath: "/tmp/card-b/readme.txt", Status: ledger.StatusIgnored}
	if _, err := store.InsertEntry(ctx, c); err != nil {
		t.Fatalf("insert c failed: %v", err)
	}

	entries, err := store.ListRun(ctx, second.ID)
	if err != nil {
		t.Fatalf("ListRun failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != b.ID || entries[1].ID != c.ID {
		t.Fatalf("unexpected run entries: %#v", entries)
	}
}

func TestPendingReadyTracksApplyRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	a := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, a); err != nil {
		t.Fatalf("insert a failed: %v", err)
	}
	b := readyEntry(run.ID, "/tmp/source/b.jpg", "fp-b", "/tmp/library/b.jpg", capturedAt.Add(time.Second))
	if _, err := store.InsertEntry(ctx, b); err != nil {
		t.Fatalf("insert b failed: %v", err)
	}

	pending, err := store.PendingReady(ctx)
	if err != nil {
		t.Fatalf("PendingReady failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(pending))
	}

	if err := store.RecordApply(ctx, a.ID, "/tmp/library/a.jpg"); err != nil {
		t.Fatalf("RecordApply failed: %v", err)
	}
	if err := store.RecordApplyFailure(ctx, b.ID, "disk full"); err != nil {
		t.Fatalf("RecordApplyFailure failed: %v", err)
	}

	pending, err = store.PendingReady(ctx)
	if err != nil {
		t.Fatalf("PendingReady failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("expected only the failed entry pending, got %#v", pending)
	}

	// A retry that succeeds replaces the failure record.
	if err := store.RecordApply(ctx, b.ID, "/tmp/library/b.jpg"); err != nil {
		t.Fatalf("RecordApply retry failed: %v", err)
	}
	pending, err = store.PendingReady(ctx)
	if err != nil {
		t.Fatalf("PendingReady failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending entries, got %d", len(pending))
	}

	applied, failed, err := store.ApplyStats(ctx)
	if err != nil {
		t.Fatalf("ApplyStats failed: %v", err)
	}
	if applied != 2 || failed != 0 {
		t.Fatalf("expected 2 applied and 0 failed, got %d/%d", applied, failed)
	}
}

func TestApplyFailuresCarrySourcePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	a := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, a); err != nil {
		t.Fatalf("insert a failed: %v", err)
	}
	b := readyEntry(run.ID, "/tmp/source/b.jpg", "fp-b", "/tmp/library/b.jpg", capturedAt.Add(time.Second))
	if _, err := store.InsertEntry(ctx, b); err != nil {
		t.Fatalf("insert b failed: %v", err)
	}

	if err := store.RecordApply(ctx, a.ID, "/tmp/library/a.jpg"); err != nil {
		t.Fatalf("RecordApply failed: %v", err)
	}
	if err := store.RecordApplyFailure(ctx, b.ID, "permission denied"); err != nil {
		t.Fatalf("RecordApplyFailure failed: %v", err)
	}

	failures, err := store.ApplyFailures(ctx)
	if err != nil {
		t.Fatalf("ApplyFailures failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	record := failures[0]
	if record.EntryID != b.ID {
		t.Fatalf("expected entry %d, got %d", b.ID, record.EntryID)
	}
	if record.SourcePath != "/tmp/source/b.jpg" {
		t.Fatalf("expected source path from the entry, got %q", record.SourcePath)
	}
	if record.ErrorMessage != "permission denied" {
		t.Fatalf("unexpected message %q", record.ErrorMessage)
	}
	if record.AppliedAt.IsZero() {
		t.Fatal("expected a failure timestamp")
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run, err := store.BeginRun(ctx, "Holiday Import", "/tmp/card", "/tmp/library")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	last, err := store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || last.ID != run.ID {
		t.Fatalf("unexpected last run: %#v", last)
	}
	if last.FinishedAt != nil {
		t.Fatal("expected unfinished run")
	}
	if last.Label != "Holiday Import" {
		t.Fatalf("unexpected label %q", last.Label)
	}

	if err := store.FinishRun(ctx, run.ID, true); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	last, err = store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if !last.Applied {
		t.Fatal("expected applied flag set")
	}
}

func TestStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run := testsupport.BeginRun(t, store, "/tmp/source", "/tmp/library")
	capturedAt := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	entry := readyEntry(run.ID, "/tmp/source/a.jpg", "fp-a", "/tmp/library/a.jpg", capturedAt)
	if _, err := store.InsertEntry(ctx, entry); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	ignored := &ledger.Entry{RunID: run.ID, SourcePath: "/tmp/source/x.txt", Status: ledger.StatusIgnored}
	if _, err := store.InsertEntry(ctx, ignored); err != nil {
		t.Fatalf("insert ignored failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusReady] != 1 || stats[ledger.StatusIgnored] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 entries removed, got %d", removed)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected empty stats, got %#v", stats)
	}

	last, err := store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last != nil {
		t.Fatalf("expected runs cleared, got %#v", last)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	path := store.Path()
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec(`UPDATE schema_version SET version = 99`); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	if _, err := ledger.Open(cfg); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
