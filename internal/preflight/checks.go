package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"shutterbox/internal/config"
	"shutterbox/internal/ledger"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	result, ok := checkIsDirectory(name, path)
	if !ok {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSourceAccess verifies that the directory exists and can be read and
// traversed. The source tree is never written to unless duplicates are
// deleted, so write access is not required here.
func CheckSourceAccess(name, path string) Result {
	result, ok := checkIsDirectory(name, path)
	if !ok {
		return result
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckApplyMode verifies the configured apply mode names a known action.
func CheckApplyMode(mode string) Result {
	const name = "Apply mode"
	switch mode {
	case config.ApplyModeCopy, config.ApplyModeMove, config.ApplyModeLink:
		return Result{Name: name, Passed: true, Detail: mode}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown mode %q", mode)}
	}
}

// CheckLedger verifies the staging ledger opens and answers queries.
func CheckLedger(ctx context.Context, cfg *config.Config) Result {
	const name = "Ledger"
	store, err := ledger.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed: %v", err)}
	}
	defer store.Close()

	if _, err := store.Stats(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("query failed: %v", err)}
	}
	return Result{Name: name, Passed: true, Detail: store.Path()}
}

func checkIsDirectory(name, path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}, false
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}, false
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}, false
	}
	return Result{}, true
}
