package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	libraryDir string
	sourceDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	library := filepath.Join(base, "library")
	staging := filepath.Join(base, "staging")
	logs := filepath.Join(base, "logs")
	source := filepath.Join(base, "card")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatalf("create source dir: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	contents := fmt.Sprintf(`[paths]
library_dir = %q
staging_dir = %q
log_dir = %q

[logging]
level = "error"
format = "json"
`, library, staging, logs)
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		libraryDir: library,
		sourceDir:  source,
	}
}

// runCLI executes a fresh root command so every invocation resolves its own
// configuration, exactly as separate terminal invocations would.
func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	full := args
	if configPath != "" {
		full = append([]string{"--config", configPath}, args...)
	}

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
