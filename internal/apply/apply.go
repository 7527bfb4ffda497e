// Package apply places ready ledger entries at their planned destinations.
// Classification rows stay untouched; every outcome lands in the applies
// table, so a replayed apply picks up exactly the entries still pending.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"shutterbox/internal/config"
	"shutterbox/internal/fileutil"
	"shutterbox/internal/ledger"
	"shutterbox/internal/logging"
)

// ErrDestinationExists reports a destination already occupied on disk while
// overwrite_existing is off.
var ErrDestinationExists = errors.New("destination already exists")

// Summary counts the per-entry outcomes of one apply pass.
type Summary struct {
	Applied int
	Failed  int
	Skipped int
}

// Total returns the number of entries the pass touched.
func (s Summary) Total() int {
	return s.Applied + s.Failed + s.Skipped
}

// Applier executes the configured transfer action for pending entries.
type Applier struct {
	cfg    *config.Config
	store  *ledger.Store
	logger *slog.Logger
}

// New builds an Applier over the given ledger.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Applier{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "apply"),
	}
}

// Run transfers every pending ready entry to its destination. One failing
// entry never stops the rest; per-entry outcomes are recorded in the ledger
// and tallied in the summary. The returned error reports ledger access
// problems or context cancellation, both of which abort the pass.
func (a *Applier) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	logger := logging.WithContext(ctx, a.logger)

	pending, err := a.store.PendingReady(ctx)
	if err != nil {
		return summary, fmt.Errorf("list pending entries: %w", err)
	}
	if len(pending) == 0 {
		logger.Info("nothing to apply")
		return summary, nil
	}
	logger.Info("applying entries",
		logging.Int("pending", len(pending)),
		logging.String("mode", a.cfg.Apply.Mode),
	)

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		applyErr := a.applyEntry(entry)
		switch {
		case applyErr == nil:
			if err := a.store.RecordApply(ctx, entry.ID, entry.DestinationPath); err != nil {
				return summary, fmt.Errorf("record apply for %s: %w", entry.SourcePath, err)
			}
			summary.Applied++
			logger.Info("entry applied",
				logging.String(logging.FieldSourcePath, entry.SourcePath),
				logging.String(logging.FieldDestination, entry.DestinationPath),
			)
		case errors.Is(applyErr, ErrDestinationExists):
			if err := a.store.RecordApplyFailure(ctx, entry.ID, applyErr.Error()); err != nil {
				return summary, fmt.Errorf("record skip for %s: %w", entry.SourcePath, err)
			}
			summary.Skipped++
			logger.Warn("destination occupied, skipping",
				logging.String(logging.FieldSourcePath, entry.SourcePath),
				logging.String(logging.FieldDestination, entry.DestinationPath),
			)
		default:
			if err := a.store.RecordApplyFailure(ctx, entry.ID, applyErr.Error()); err != nil {
				return summary, fmt.Errorf("record failure for %s: %w", entry.SourcePath, err)
			}
			summary.Failed++
			logger.Warn("apply failed",
				logging.String(logging.FieldSourcePath, entry.SourcePath),
				logging.String(logging.FieldDestination, entry.DestinationPath),
				logging.Error(applyErr),
			)
		}
	}

	logger.Info("apply finished",
		logging.Int("applied", summary.Applied),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (a *Applier) applyEntry(entry *ledger.Entry) error {
	dst := entry.DestinationPath
	if dst == "" {
		return errors.New("entry carries no destination")
	}

	if _, err := os.Lstat(dst); err == nil {
		if !a.cfg.Apply.OverwriteExisting {
			return ErrDestinationExists
		}
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("remove existing destination: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}

	switch a.cfg.Apply.Mode {
	case config.ApplyModeCopy:
		return fileutil.CopyFile(entry.SourcePath, dst)
	case config.ApplyModeMove:
		return fileutil.MoveFile(entry.SourcePath, dst)
	case config.ApplyModeLink:
		return fileutil.LinkFile(entry.SourcePath, dst)
	default:
		return fmt.Errorf("unknown apply mode %q", a.cfg.Apply.Mode)
	}
}
