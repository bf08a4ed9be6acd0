// Package config loads bib's TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths locates the library and the files bib keeps next to it.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	StateFile  string `toml:"state_file"`
	LogFile    string `toml:"log_file"`
}

// Lookup configures the identifier fetchers and their HTTP clients.
type Lookup struct {
	// Fetchers lists enabled fetchers in guessing order.
	Fetchers             []string `toml:"fetchers"`
	HTTPTimeoutSeconds   int      `toml:"http_timeout_seconds"`
	RequestsPerSecond    float64  `toml:"requests_per_second"`
	Burst                int      `toml:"burst"`
	CacheTTLMinutes      int      `toml:"cache_ttl_minutes"`
	LookupTimeoutSeconds int      `toml:"lookup_timeout_seconds"` // 0 disables
}

// Library configures what happens when an entry is imported.
type Library struct {
	OnDuplicate  string `toml:"on_duplicate"`
	BibTeXMirror bool   `toml:"bibtex_mirror"`
	GitCommit    bool   `toml:"git_commit"`
	GitPush      bool   `toml:"git_push"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Metrics configures the Prometheus textfile written after each command.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for bib.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Lookup  Lookup  `toml:"lookup"`
	Library Library `toml:"library"`
	Logging Logging `toml:"logging"`
	Metrics Metrics `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, normalizes and validates the configuration. It
// returns the config, the path it resolved and whether that file existed.
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

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
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

// resolveConfigPath prefers an explicit path, then the per-user file, then
// bib.toml in the working directory.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("bib.toml")
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

// CreateSample writes the annotated sample configuration to path.
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

// HTTPTimeout bounds each outbound HTTP request.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Lookup.HTTPTimeoutSeconds) * time.Second
}

// LookupTimeout bounds a whole fetcher search; zero means none.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Lookup.LookupTimeoutSeconds) * time.Second
}

// CacheTTL is how long successful lookups are reused.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Lookup.CacheTTLMinutes) * time.Minute
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
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(pathValue string) (string, error) { return expandPath(pathValue) }
