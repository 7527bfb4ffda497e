package preflight

import (
	"context"

	"shutterbox/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// An empty sourceDir skips the source check; apply-only runs have no
// source tree.
func RunAll(ctx context.Context, cfg *config.Config, sourceDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if sourceDir != "" {
		results = append(results, CheckSourceAccess("Source directory", sourceDir))
	}

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))

	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}

	results = append(results, CheckApplyMode(cfg.Apply.Mode))
	results = append(results, CheckLedger(ctx, cfg))

	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
