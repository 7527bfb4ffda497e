package config

import "strings"

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeClassify()
	c.normalizeApply()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeScan() {
	if c.Scan.MaxDepth < 0 {
		c.Scan.MaxDepth = 0
	}
	cleaned := make([]string, 0, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cleaned = append(cleaned, ext)
	}
	if len(cleaned) == 0 {
		cleaned = Default().Scan.Extensions
	}
	c.Scan.Extensions = cleaned
}

func (c *Config) normalizeClassify() {
	cleaned := make([]string, 0, len(c.Classify.KnownBadSoftware))
	for _, name := range c.Classify.KnownBadSoftware {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		cleaned = append(cleaned, name)
	}
	c.Classify.KnownBadSoftware = cleaned

	// The undated directory is a single path element under the library root.
	c.Classify.UndatedDir = strings.Trim(strings.TrimSpace(c.Classify.UndatedDir), "/")
}

func (c *Config) normalizeApply() {
	c.Apply.Mode = strings.ToLower(strings.TrimSpace(c.Apply.Mode))
	if c.Apply.Mode == "" {
		c.Apply.Mode = ApplyModeCopy
	}
}

func (c *Config) normalizeWatch() {
	c.Watch.SourceSubdir = strings.Trim(strings.TrimSpace(c.Watch.SourceSubdir), "/")
	if c.Watch.SourceSubdir == "" {
		c.Watch.SourceSubdir = defaultSourceSubdir
	}
	if c.Watch.MountTimeout <= 0 {
		c.Watch.MountTimeout = defaultMountTimeout
	}
	if c.Watch.SettleDelay < 0 {
		c.Watch.SettleDelay = defaultSettleDelay
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
