package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldSourcePath is the standardized structured logging key for the file being classified.
	FieldSourcePath = "source"
	// FieldDestination is the standardized structured logging key for planned destinations.
	FieldDestination = "destination"
	// FieldStatus is the standardized structured logging key for ledger statuses.
	FieldStatus = "status"
	// FieldFingerprint is the standardized structured logging key for content digests.
	FieldFingerprint = "fingerprint"
)

type contextKey string

const runIDContextKey contextKey = "shutterbox.run_id"

// WithRunID stores a run identifier on the context for log correlation.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunIDFromContext extracts a run identifier previously stored with WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDContextKey).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := RunIDFromContext(ctx); ok {
		return logger.With(String(FieldRunID, id))
	}
	return logger
}
