// Package workflow orchestrates one import run end to end.
//
// A run is: acquire the staging lock, gate on preflight, begin a ledger run,
// walk the source tree classifying every file, optionally apply the plan,
// and finish the run. The runner owns the wiring; the per-file decisions
// live in classify and the transfers in apply.
package workflow
