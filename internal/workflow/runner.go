package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"shutterbox/internal/apply"
	"shutterbox/internal/classify"
	"shutterbox/internal/config"
	"shutterbox/internal/ledger"
	"shutterbox/internal/logging"
	"shutterbox/internal/preflight"
	"shutterbox/internal/scan"
)

// ErrAlreadyRunning reports that another shutterbox process holds the
// staging lock.
var ErrAlreadyRunning = errors.New("another shutterbox run holds the staging lock")

// Runner wires the scan, classify, and apply phases over one shared ledger.
type Runner struct {
	cfg    *config.Config
	store  *ledger.Store
	logger *slog.Logger
	lock   *flock.Flock
}

// New opens the ledger and prepares a runner. Close releases the ledger.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		lock:   flock.New(cfg.LockPath()),
	}, nil
}

// Close releases the runner's ledger handle.
func (r *Runner) Close() error {
	return r.store.Close()
}

// Store exposes the runner's ledger for reporting.
func (r *Runner) Store() *ledger.Store {
	return r.store
}

// Run performs a full import of sourceDir: classify everything, then apply.
func (r *Runner) Run(ctx context.Context, sourceDir string) (*Report, error) {
	return r.run(ctx, sourceDir, true)
}

// Plan classifies sourceDir without applying, leaving the planned moves
// pending in the ledger.
func (r *Runner) Plan(ctx context.Context, sourceDir string) (*Report, error) {
	return r.run(ctx, sourceDir, false)
}

func (r *Runner) run(ctx context.Context, sourceDir string, applyAfter bool) (*Report, error) {
	sourceDir, err := config.ExpandPath(sourceDir)
	if err != nil {
		return nil, err
	}

	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := r.gate(ctx, sourceDir); err != nil {
		return nil, err
	}

	start := time.Now()
	label := runLabel(sourceDir)
	run, err := r.store.BeginRun(ctx, label, sourceDir, r.cfg.Paths.LibraryDir)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithRunID(ctx, run.ID)
	r.logger.Info("run started",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("label", label),
		logging.String("source_dir", sourceDir),
		logging.String("target_dir", r.cfg.Paths.LibraryDir),
	)

	engine, err := classify.New(r.cfg, r.store, r.logger)
	if err != nil {
		return nil, err
	}

	report := NewReport(run, r.cfg.Paths.LibraryDir)
	opts := scan.Options{
		Recursive:      r.cfg.Scan.Recursive,
		MaxDepth:       r.cfg.Scan.MaxDepth,
		FollowSymlinks: r.cfg.Scan.FollowSymlinks,
	}
	// An aborted walk leaves the run without a finished_at mark, which is
	// how an interrupted run shows up in status output.
	err = scan.Walk(sourceDir, opts, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := engine.Classify(ctx, run.ID, path)
		if err != nil {
			return fmt.Errorf("classify %s: %w", path, err)
		}
		report.Record(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applyAfter {
		summary, err := apply.New(r.cfg, r.store, r.logger).Run(ctx)
		if err != nil {
			return nil, err
		}
		report.Apply = summary
		report.Applied = true
	}

	report.ReclaimedBytes = engine.ReclaimedBytes()
	report.Elapsed = time.Since(start)
	if err := r.store.FinishRun(ctx, run.ID, applyAfter); err != nil {
		return nil, err
	}
	r.logger.Info("run finished",
		logging.String(logging.FieldRunID, run.ID),
		logging.Int("scanned", report.Scanned),
		logging.Int("ready", report.Counts[ledger.StatusReady]),
		logging.Int("duplicate", report.Counts[ledger.StatusDuplicate]),
		logging.Int("ignored", report.Counts[ledger.StatusIgnored]),
		logging.Int("failed", report.Counts[ledger.StatusFailed]),
		logging.Bool("applied", report.Applied),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// ApplyPending replays the apply phase for entries still pending in the
// ledger, without scanning anything.
func (r *Runner) ApplyPending(ctx context.Context) (*Report, error) {
	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := r.gate(ctx, ""); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{Counts: make(map[ledger.Status]int)}

	counts, err := r.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	for status, count := range counts {
		report.Counts[status] = count
		report.Scanned += count
	}

	summary, err := apply.New(r.cfg, r.store, r.logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	report.Apply = summary
	report.Applied = true
	report.Elapsed = time.Since(start)
	return report, nil
}

// Clear wipes the ledger under the run lock so an active import cannot race
// the deletion. It returns the number of entries removed.
func (r *Runner) Clear(ctx context.Context) (int64, error) {
	release, err := r.acquireLock()
	if err != nil {
		return 0, err
	}
	defer release()

	removed, err := r.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	r.logger.Info("ledger cleared", logging.Int64("entries", removed))
	return removed, nil
}

func (r *Runner) acquireLock() (func(), error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

func (r *Runner) gate(ctx context.Context, sourceDir string) error {
	results := preflight.RunAll(ctx, r.cfg, sourceDir)
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, result := range failed {
		details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
}
