// Package ledger persists classification decisions in SQLite and exposes the
// queries the classify and apply phases need.
//
// One Entry is written per discovered file, exactly once, with a terminal
// status decided at insert time. Uniqueness lives in the schema: source paths
// are unique outright, and fingerprints and destinations are unique among
// ready entries via partial indexes, making the insert the final collision
// guard. Apply-phase bookkeeping goes to a separate applies table so the
// classification record itself stays append-only.
//
// The database lives in the staging directory and persists across runs:
// duplicate detection and pending-apply replay both read prior history.
// Schema changes bump the version in schema.go; users delete the ledger to
// adopt the new schema.
package ledger
