// Package config loads, normalizes, and validates shutterbox configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI and run pipeline need: library and staging directories, scan
// traversal limits, classification policy, and the apply action.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
