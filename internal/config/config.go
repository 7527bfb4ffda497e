package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Scan contains configuration for source tree traversal.
type Scan struct {
	Recursive      bool     `toml:"recursive"`
	MaxDepth       int      `toml:"max_depth"`
	FollowSymlinks bool     `toml:"follow_symlinks"`
	Extensions     []string `toml:"extensions"`
}

// Classify contains classification and deduplication policy.
type Classify struct {
	KnownBadSoftware []string `toml:"known_bad_software"`
	DeleteDuplicates bool     `toml:"delete_duplicates"`
	UndatedDir       string   `toml:"undated_dir"`
}

// Apply contains configuration for the apply phase.
type Apply struct {
	Mode              string `toml:"mode"`
	OverwriteExisting bool   `toml:"overwrite_existing"`
}

// Watch contains configuration for the removable-media watch loop.
type Watch struct {
	Enabled      bool   `toml:"enabled"`
	SourceSubdir string `toml:"source_subdir"`
	MountTimeout int    `toml:"mount_timeout"`
	SettleDelay  int    `toml:"settle_delay"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Apply modes.
const (
	ApplyModeCopy = "copy"
	ApplyModeMove = "move"
	ApplyModeLink = "link"
)

// Config encapsulates all configuration values for shutterbox.
//
// Configuration sections by subsystem:
//   - Paths: library root, staging (ledger + lock), and log directories
//   - Scan: traversal depth, symlink policy, and the image extension allow-list
//   - Classify: quirk list, duplicate deletion, undated placement
//   - Apply: destination action (copy/move/link) and overwrite policy
//   - Watch: removable-media auto-import
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scan     Scan     `toml:"scan"`
	Classify Classify `toml:"classify"`
	Apply    Apply    `toml:"apply"`
	Watch    Watch    `toml:"watch"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shutterbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shutterbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// ResolvePath resolves the configuration file location the same way Load
// does, without parsing anything. The boolean reports whether a file exists
// at the returned path.
func ResolvePath(path string) (string, bool, error) {
	return resolveConfigPath(path)
}

// EnsureDirectories creates the directories a run needs. LibraryDir is created
// on a best-effort basis so configuration still loads when external storage is
// temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// LedgerPath returns the SQLite ledger location inside the staging directory.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StagingDir, "ledger.db")
}

// LockPath returns the run lock location inside the staging directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StagingDir, "shutterbox.lock")
}

// AllowedExtensions returns the extension allow-list as a lookup set with
// lowercased, dot-prefixed keys.
func (c *Config) AllowedExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
