package config

import (
	"errors"
	"fmt"

	"bibentry/src/internal/library"
)

var knownFetchers = map[string]bool{"DOI": true, "ISBN": true, "RFC": true, "YOUTUBE": true, "URL": true}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLookup(); err != nil {
		return err
	}
	if _, err := library.ParsePolicy(c.Library.OnDuplicate); err != nil {
		return fmt.Errorf("library.on_duplicate: %w", err)
	}
	if c.Library.GitPush && !c.Library.GitCommit {
		return errors.New("library.git_push requires library.git_commit")
	}
	return c.validateLogging()
}

func (c *Config) validateLookup() error {
	for _, name := range c.Lookup.Fetchers {
		if !knownFetchers[name] {
			return fmt.Errorf("lookup.fetchers: unknown fetcher %q", name)
		}
	}
	if c.Lookup.RequestsPerSecond < 0 {
		return errors.New("lookup.requests_per_second must be >= 0 (0 disables limiting)")
	}
	if c.Lookup.LookupTimeoutSeconds < 0 {
		return errors.New("lookup.lookup_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// DuplicatePolicy returns the validated import policy.
func (c *Config) DuplicatePolicy() library.Policy {
	p, err := library.ParsePolicy(c.Library.OnDuplicate)
	if err != nil {
		return library.PolicyMerge
	}
	return p
}
