package testsupport

import (
	"path/filepath"
	"testing"

	"shutterbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithApplyMode sets the apply transfer mode on the test config.
func WithApplyMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Apply.Mode = mode
	}
}

// WithExtensions replaces the allowed scan extensions on the test config.
func WithExtensions(exts ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Extensions = exts
	}
}

// WithDeleteDuplicates enables duplicate-source deletion on the test config.
func WithDeleteDuplicates() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classify.DeleteDuplicates = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
