package config

const (
	defaultConfigPath           = "~/.config/bib/config.toml"
	defaultLibraryDir           = "~/bibliography"
	defaultStateFile            = "~/.local/state/bib/new-entry.yaml"
	defaultHTTPTimeoutSeconds   = 20
	defaultRequestsPerSecond    = 2
	defaultBurst                = 4
	defaultCacheTTLMinutes      = 60
	defaultLookupTimeoutSeconds = 60
	defaultOnDuplicate          = "merge"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogMaxSizeMB         = 10
	defaultLogMaxBackups        = 3
)

var defaultFetchers = []string{"DOI", "ISBN", "RFC", "YOUTUBE", "URL"}

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			StateFile:  defaultStateFile,
		},
		Lookup: Lookup{
			Fetchers:             append([]string(nil), defaultFetchers...),
			HTTPTimeoutSeconds:   defaultHTTPTimeoutSeconds,
			RequestsPerSecond:    defaultRequestsPerSecond,
			Burst:                defaultBurst,
			CacheTTLMinutes:      defaultCacheTTLMinutes,
			LookupTimeoutSeconds: defaultLookupTimeoutSeconds,
		},
		Library: Library{
			OnDuplicate:  defaultOnDuplicate,
			BibTeXMirror: true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
	}
}
