package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLookup()
	c.Library.OnDuplicate = strings.ToLower(strings.TrimSpace(c.Library.OnDuplicate))
	if c.Library.OnDuplicate == "" {
		c.Library.OnDuplicate = defaultOnDuplicate
	}
	c.normalizeLogging()
	return nil
}

// applyEnv lets BIB_* variables override the file.
func (c *Config) applyEnv() {
	if v, ok := lookupEnv("BIB_LIBRARY_DIR"); ok {
		c.Paths.LibraryDir = v
	}
	if v, ok := lookupEnv("BIB_STATE_FILE"); ok {
		c.Paths.StateFile = v
	}
	if v, ok := lookupEnv("BIB_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		c.Paths.LibraryDir = defaultLibraryDir
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateFile) == "" {
		c.Paths.StateFile = defaultStateFile
	}
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	if c.Paths.LogFile, err = expandPath(strings.TrimSpace(c.Paths.LogFile)); err != nil {
		return fmt.Errorf("paths.log_file: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLookup() {
	var names []string
	seen := map[string]bool{}
	for _, n := range c.Lookup.Fetchers {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if len(names) == 0 {
		names = append(names, defaultFetchers...)
	}
	c.Lookup.Fetchers = names
	if c.Lookup.HTTPTimeoutSeconds <= 0 {
		c.Lookup.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if c.Lookup.Burst <= 0 {
		c.Lookup.Burst = defaultBurst
	}
	if c.Lookup.CacheTTLMinutes < 0 {
		c.Lookup.CacheTTLMinutes = 0
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
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
