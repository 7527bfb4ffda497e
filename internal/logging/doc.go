// Package logging assembles the structured slog loggers used across
// shutterbox.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers so run code can tag log lines with run IDs
// and source paths consistently. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
