package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateApply(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LibraryDir == c.Paths.StagingDir {
		return errors.New("paths.library_dir and paths.staging_dir must differ")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must be zero or positive")
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("scan.extensions entry %q must be a dot-prefixed suffix", ext)
		}
	}
	return nil
}

func (c *Config) validateApply() error {
	switch c.Apply.Mode {
	case ApplyModeCopy, ApplyModeMove, ApplyModeLink:
		return nil
	default:
		return fmt.Errorf("apply.mode must be one of copy, move, link (got %q)", c.Apply.Mode)
	}
}

func (c *Config) validateWatch() error {
	if !c.Watch.Enabled {
		return nil
	}
	if c.Watch.MountTimeout <= 0 {
		return errors.New("watch.mount_timeout must be positive when watch.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "pretty", "json":
	default:
		return fmt.Errorf("logging.format must be pretty or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
