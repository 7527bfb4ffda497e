package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shutterbox/internal/config"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database in the staging
// directory and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.LedgerPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the ledger database location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun records a new run and returns it with a fresh identifier.
func (s *Store) BeginRun(ctx context.Context, label, sourceDir, targetDir string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Label:     label,
		SourceDir: sourceDir,
		TargetDir: targetDir,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, label, source_dir, target_dir, started_at, applied) VALUES (?, ?, ?, ?, ?, 0)`,
		run.ID,
		run.Label,
		run.SourceDir,
		run.TargetDir,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps a run's completion time and whether apply executed.
func (s *Store) FinishRun(ctx context.Context, runID string, applied bool) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, applied = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		boolToInt(applied),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil when no run exists.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, label, source_dir, target_dir, started_at, finished_at, applied
         FROM runs ORDER BY started_at DESC LIMIT 1`,
	)

	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		applied     int
	)
	err := row.Scan(&run.ID, &run.Label, &run.SourceDir, &run.TargetDir, &startedRaw, &finishedRaw, &applied)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	run.Applied = applied != 0
	return &run, nil
}

// InsertEntry persists a classification decision. The insert is the final
// uniqueness guard: a source_path conflict reports inserted=false without
// error (idempotent re-processing), while fingerprint or destination
// conflicts among ready rows surface as collision errors.
func (s *Store) InsertEntry(ctx context.Context, entry *Entry) (bool, error) {
	if entry == nil {
		return false, errors.New("entry is nil")
	}
	if _, ok := statusSet[entry.Status]; !ok {
		return false, fmt.Errorf("unknown status %q", entry.Status)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO entries (
            run_id, source_path, fingerprint, fingerprint_source, captured_at,
            synthetic, destination_path, status, error_message, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.SourcePath,
		entry.Fingerprint,
		entry.FingerprintSource,
		nullableTime(entry.CapturedAt),
		boolToInt(entry.Synthetic),
		nullableString(entry.DestinationPath),
		entry.Status,
		nullableString(entry.ErrorMessage),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if conflictErr, handled := mapInsertConflict(entry, err); handled {
			return false, conflictErr
		}
		return false, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return true, nil
}

func mapInsertConflict(entry *Entry, err error) (error, bool) {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil, false
	}
	switch {
	case strings.Contains(msg, "source_path"):
		return nil, true
	case strings.Contains(msg, "destination"):
		return fmt.Errorf("insert entry for %s: %w", entry.SourcePath, ErrDestinationCollision), true
	case strings.Contains(msg, "fingerprint"):
		return fmt.Errorf("insert entry for %s: %w", entry.SourcePath, ErrFingerprintCollision), true
	default:
		return nil, false
	}
}

// FindBySource returns the entry recorded for a source path, or nil.
func (s *Store) FindBySource(ctx context.Context, sourcePath string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries WHERE source_path = ?`,
		sourcePath,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source: %w", err)
	}
	return entry, nil
}

// FindByFingerprint returns the first entry carrying the digest, or nil.
// Ignored entries never carry a digest, so failed and duplicate rows count:
// a byte-identical retry of a failed file is recognized as a duplicate.
func (s *Store) FindByFingerprint(ctx context.Context, digest string) (*Entry, error) {
	if digest == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries WHERE fingerprint = ? ORDER BY id LIMIT 1`,
		digest,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return entry, nil
}

// CountByCaptureTime counts ready entries with exactly this capture time.
// Synthetic rows are excluded so undated entries never inflate the ordinal
// of a genuinely epoch-dated photo.
func (s *Store) CountByCaptureTime(ctx context.Context, capturedAt time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM entries WHERE status = ? AND synthetic = 0 AND captured_at = ?`,
		StatusReady,
		capturedAt.UTC().Format(time.RFC3339Nano),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by capture time: %w", err)
	}
	return count, nil
}

// CountUndated counts ready entries carrying a synthetic timestamp. The
// classification engine seeds its run-global undated counter from this so an
// interrupted run resumes without reusing ordinals.
func (s *Store) CountUndated(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM entries WHERE status = ? AND synthetic = 1`,
		StatusReady,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count undated: %w", err)
	}
	return count, nil
}

// EntriesByStatus returns entries matching a status in insertion order.
func (s *Store) EntriesByStatus(ctx context.Context, status Status) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries WHERE status = ? ORDER BY id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// List returns entries filtered by status set (or all entries when no status
// is provided), in insertion order.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM entries`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListRun returns every entry classified during the given run, in insertion
// order.
func (s *Store) ListRun(ctx context.Context, runID string) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// PendingReady returns ready entries that have no successful apply record,
// in insertion order. Re-running apply skips work already performed.
func (s *Store) PendingReady(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+prefixedEntryColumns("e")+`
         FROM entries e
         LEFT JOIN applies a ON a.entry_id = e.id AND a.error_message IS NULL
         WHERE e.status = ? AND a.entry_id IS NULL
         ORDER BY e.id`,
		StatusReady,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending ready: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// RecordApply marks an entry's apply action successful. A prior failure
// record for the entry is replaced.
func (s *Store) RecordApply(ctx context.Context, entryID int64, finalPath string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO applies (entry_id, applied_at, final_path, error_message)
         VALUES (?, ?, ?, NULL)
         ON CONFLICT(entry_id) DO UPDATE SET
             applied_at = excluded.applied_at,
             final_path = excluded.final_path,
             error_message = NULL`,
		entryID,
		time.Now().UTC().Format(time.RFC3339Nano),
		nullableString(finalPath),
	)
	if err != nil {
		return fmt.Errorf("record apply: %w", err)
	}
	return nil
}

// RecordApplyFailure marks an entry's apply action failed with a message.
func (s *Store) RecordApplyFailure(ctx context.Context, entryID int64, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO applies (entry_id, applied_at, final_path, error_message)
         VALUES (?, ?, NULL, ?)
         ON CONFLICT(entry_id) DO UPDATE SET
             applied_at = excluded.applied_at,
             final_path = NULL,
             error_message = excluded.error_message`,
		entryID,
		time.Now().UTC().Format(time.RFC3339Nano),
		nullableString(message),
	)
	if err != nil {
		return fmt.Errorf("record apply failure: %w", err)
	}
	return nil
}

// ApplyFailures returns apply records that ended in an error, oldest first.
func (s *Store) ApplyFailures(ctx context.Context) ([]ApplyRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT a.entry_id, e.source_path, a.applied_at, a.final_path, a.error_message
         FROM applies a JOIN entries e ON e.id = a.entry_id
         WHERE a.error_message IS NOT NULL ORDER BY a.entry_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query apply failures: %w", err)
	}
	defer rows.Close()

	var records []ApplyRecord
	for rows.Next() {
		var (
			record     ApplyRecord
			appliedRaw string
			finalPath  sql.NullString
			message    sql.NullString
		)
		if err := rows.Scan(&record.EntryID, &record.SourcePath, &appliedRaw, &finalPath, &message); err != nil {
			return nil, err
		}
		if appliedAt, err := parseTimeString(appliedRaw); err == nil {
			record.AppliedAt = appliedAt
		}
		record.FinalPath = finalPath.String
		record.ErrorMessage = message.String
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM entries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("ledger stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ApplyStats returns counts of successful and failed apply records.
func (s *Store) ApplyStats(ctx context.Context) (applied int, failed int, err error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT
            COALESCE(SUM(CASE WHEN error_message IS NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN error_message IS NOT NULL THEN 1 ELSE 0 END), 0)
         FROM applies`,
	)
	if err := row.Scan(&applied, &failed); err != nil {
		return 0, 0, fmt.Errorf("apply stats: %w", err)
	}
	return applied, failed, nil
}

// Clear removes all entries, apply records, and runs, discarding the
// classification history. Files already filed in the library are untouched,
// so the next import will not recognize them as duplicates.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM applies`); err != nil {
		return 0, fmt.Errorf("clear applies: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("clear entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

const entryColumns = "id, run_id, source_path, fingerprint, fingerprint_source, captured_at, synthetic, destination_path, status, error_message, created_at"

func prefixedEntryColumns(alias string) string {
	cols := strings.Split(entryColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id           int64
		runID        sql.NullString
		sourcePath   string
		fingerprint  sql.NullString
		fpSource     sql.NullString
		capturedRaw  sql.NullString
		synthetic    sql.NullInt64
		destination  sql.NullString
		statusStr    string
		errorMessage sql.NullString
		createdRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&runID,
		&sourcePath,
		&fingerprint,
		&fpSource,
		&capturedRaw,
		&synthetic,
		&destination,
		&statusStr,
		&errorMessage,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                id,
		RunID:             runID.String,
		SourcePath:        sourcePath,
		Fingerprint:       fingerprint.String,
		FingerprintSource: fpSource.String,
		DestinationPath:   destination.String,
		Status:            Status(statusStr),
		ErrorMessage:      errorMessage.String,
	}
	if synthetic.Valid {
		entry.Synthetic = synthetic.Int64 != 0
	}
	if capturedRaw.Valid {
		if captured, err := parseTimeString(capturedRaw.String); err == nil {
			entry.CapturedAt = captured
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
