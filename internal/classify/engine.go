// Package classify implements the terminal classification decision for each
// discovered file: ignored, failed, duplicate, or ready with a planned
// destination. Verdicts never change after they are recorded; the ledger's
// unique indexes are the final word on fingerprint and destination
// ownership.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shutterbox/internal/config"
	"shutterbox/internal/fingerprint"
	"shutterbox/internal/ledger"
	"shutterbox/internal/logging"
	"shutterbox/internal/metadata"
)

// Engine classifies files into the ledger. It is safe for concurrent use:
// file reads overlap freely while verdict decisions serialize on an
// internal mutex, since the undated counter and the same-second ordinal
// both depend on what was inserted before.
type Engine struct {
	cfg         *config.Config
	store       *ledger.Store
	resolver    *metadata.Resolver
	logger      *slog.Logger
	allowedExts map[string]struct{}

	mu           sync.Mutex
	undatedCount int
	reclaimed    int64
}

// New builds an Engine. The run-global undated counter resumes from the
// count of undated entries already in the ledger, so an interrupted run
// never reuses an ordinal.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	undated, err := store.CountUndated(context.Background())
	if err != nil {
		return nil, fmt.Errorf("seed undated counter: %w", err)
	}
	return &Engine{
		cfg:          cfg,
		store:        store,
		resolver:     metadata.NewResolver(cfg.Classify.KnownBadSoftware),
		logger:       logging.NewComponentLogger(logger, "classify"),
		allowedExts:  cfg.AllowedExtensions(),
		undatedCount: undated,
	}, nil
}

// Classify decides the terminal status for the file at path and records it.
// Reclassifying an already-recorded source path returns the existing entry
// untouched. The returned error reports ledger failures, not per-file
// verdicts: an unreadable or corrupt file yields a failed entry and a nil
// error.
func (e *Engine) Classify(ctx context.Context, runID, path string) (*ledger.Entry, error) {
	logger := logging.WithContext(ctx, e.logger)

	existing, err := e.store.FindBySource(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Debug("source already classified",
			logging.String(logging.FieldSourcePath, path),
			logging.String(logging.FieldStatus, string(existing.Status)),
		)
		return existing, nil
	}

	entry := &ledger.Entry{RunID: runID, SourcePath: path}

	ext := normalizeExt(path)
	if _, ok := e.allowedExts[ext]; !ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		entry.Status = ledger.StatusIgnored
		recorded, err := e.insert(ctx, entry)
		if err != nil {
			return nil, err
		}
		logger.Debug("ignored by extension",
			logging.String(logging.FieldSourcePath, path),
			logging.String("ext", ext),
		)
		return recorded, nil
	}

	// File reads stay outside the lock so concurrent callers overlap on
	// I/O; everything from the fingerprint lookup on is serialized.
	meta, readErr := metadata.Read(path)
	if readErr != nil {
		// A corrupt image is still hashable. Recording its content
		// identity lets byte-identical copies of it collapse to
		// duplicates instead of failing again. A file that cannot be
		// opened at all fails the hash too and stays fingerprint-less.
		if fp, err := fingerprint.File(path); err == nil {
			entry.Fingerprint = fp.Digest
			entry.FingerprintSource = string(fp.Source)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if entry.Fingerprint != "" {
			seen, err := e.store.FindByFingerprint(ctx, entry.Fingerprint)
			if err != nil {
				return nil, err
			}
			if seen != nil {
				return e.classifyDuplicate(ctx, entry, seen)
			}
		}
		return e.classifyFailed(ctx, entry, readErr.Error())
	}

	fp, fpErr := fingerprint.ForFile(path, meta.Thumbnail)
	if fpErr != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.classifyFailed(ctx, entry, fpErr.Error())
	}
	entry.Fingerprint = fp.Digest
	entry.FingerprintSource = string(fp.Source)

	capturedAt, synthetic := e.resolver.CaptureTime(meta)
	entry.CapturedAt = capturedAt
	entry.Synthetic = synthetic

	e.mu.Lock()
	defer e.mu.Unlock()

	seen, err := e.store.FindByFingerprint(ctx, fp.Digest)
	if err != nil {
		return nil, err
	}
	if seen != nil {
		return e.classifyDuplicate(ctx, entry, seen)
	}

	if synthetic {
		return e.classifyUndated(ctx, entry, ext)
	}
	return e.classifyDated(ctx, entry, ext)
}

// ReclaimedBytes reports how much duplicate source data this engine has
// deleted so far. Always zero unless delete_duplicates is enabled.
func (e *Engine) ReclaimedBytes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reclaimed
}

// The classify* helpers below run with e.mu held.

func (e *Engine) classifyFailed(ctx context.Context, entry *ledger.Entry, message string) (*ledger.Entry, error) {
	entry.Status = ledger.StatusFailed
	entry.ErrorMessage = message
	entry.DestinationPath = ""

	recorded, err := e.insert(ctx, entry)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, e.logger).Warn("classification failed",
		logging.String(logging.FieldSourcePath, entry.SourcePath),
		logging.String("error", message),
	)
	return recorded, nil
}

func (e *Engine) classifyDuplicate(ctx context.Context, entry *ledger.Entry, seen *ledger.Entry) (*ledger.Entry, error) {
	entry.Status = ledger.StatusDuplicate
	entry.ErrorMessage = ""
	entry.DestinationPath = ""
	entry.CapturedAt = time.Time{}
	entry.Synthetic = false

	recorded, err := e.insert(ctx, entry)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("duplicate detected",
		logging.String(logging.FieldSourcePath, entry.SourcePath),
		logging.String(logging.FieldFingerprint, entry.Fingerprint),
		logging.String("original", seen.SourcePath),
	)

	// The verdict is durable once the insert lands; only then is removing
	// the source safe.
	if e.cfg.Classify.DeleteDuplicates && recorded.Status == ledger.StatusDuplicate {
		var size int64
		if info, err := os.Stat(entry.SourcePath); err == nil {
			size = info.Size()
		}
		if err := os.Remove(entry.SourcePath); err != nil {
			logger.Warn("delete duplicate source failed",
				logging.String(logging.FieldSourcePath, entry.SourcePath),
				logging.Error(err),
			)
		} else {
			e.reclaimed += size
			logger.Info("duplicate source deleted",
				logging.String(logging.FieldSourcePath, entry.SourcePath),
			)
		}
	}
	return recorded, nil
}

func (e *Engine) classifyDated(ctx context.Context, entry *ledger.Entry, ext string) (*ledger.Entry, error) {
	ordinal, err := e.store.CountByCaptureTime(ctx, entry.CapturedAt)
	if err != nil {
		return nil, err
	}
	dir := destinationDir(e.cfg.Paths.LibraryDir, entry.CapturedAt)
	entry.DestinationPath = filepath.Join(dir, datedFilename(entry.CapturedAt, ordinal, ext))
	entry.Status = ledger.StatusReady

	recorded, err := e.insertReady(ctx, entry)
	if err != nil {
		return nil, err
	}
	if recorded.Status == ledger.StatusReady {
		logging.WithContext(ctx, e.logger).Info("classified ready",
			logging.String(logging.FieldSourcePath, recorded.SourcePath),
			logging.String(logging.FieldDestination, recorded.DestinationPath),
		)
	}
	return recorded, nil
}

func (e *Engine) classifyUndated(ctx context.Context, entry *ledger.Entry, ext string) (*ledger.Entry, error) {
	counter := e.undatedCount + 1
	dir := destinationDir(e.cfg.Paths.LibraryDir, entry.CapturedAt)
	if sub := e.cfg.Classify.UndatedDir; sub != "" {
		dir = filepath.Join(e.cfg.Paths.LibraryDir, sub)
	}
	entry.DestinationPath = filepath.Join(dir, undatedFilename(counter, ext))
	entry.Status = ledger.StatusReady

	recorded, err := e.insertReady(ctx, entry)
	if err != nil {
		return nil, err
	}
	if recorded.Status == ledger.StatusReady && recorded.Synthetic {
		e.undatedCount = counter
		logging.WithContext(ctx, e.logger).Info("classified ready without capture time",
			logging.String(logging.FieldSourcePath, recorded.SourcePath),
			logging.String(logging.FieldDestination, recorded.DestinationPath),
			logging.Int("undated_ordinal", counter),
		)
	}
	return recorded, nil
}

// insertReady persists a ready entry and downgrades the verdict when the
// ledger's unique indexes reject it: a fingerprint collision becomes a
// duplicate, a destination collision becomes a failure. Both are races
// between the lookup and the insert, so the insert is the authority.
func (e *Engine) insertReady(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	recorded, err := e.insert(ctx, entry)
	switch {
	case err == nil:
		return recorded, nil
	case errors.Is(err, ledger.ErrFingerprintCollision):
		seen, findErr := e.store.FindByFingerprint(ctx, entry.Fingerprint)
		if findErr != nil {
			return nil, findErr
		}
		if seen == nil {
			return nil, err
		}
		return e.classifyDuplicate(ctx, entry, seen)
	case errors.Is(err, ledger.ErrDestinationCollision):
		logging.WithContext(ctx, e.logger).Warn("destination already planned",
			logging.String(logging.FieldSourcePath, entry.SourcePath),
			logging.String(logging.FieldDestination, entry.DestinationPath),
		)
		message := fmt.Sprintf("destination %s already planned by another entry", entry.DestinationPath)
		return e.classifyFailed(ctx, entry, message)
	default:
		return nil, err
	}
}

// insert writes the entry, treating a source-path conflict as "someone beat
// us to this file" and returning the existing row instead.
func (e *Engine) insert(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	inserted, err := e.store.InsertEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	if inserted {
		return entry, nil
	}
	existing, err := e.store.FindBySource(ctx, entry.SourcePath)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("entry for %s missing after conflicting insert", entry.SourcePath)
	}
	return existing, nil
}
