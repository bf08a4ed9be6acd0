package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bibentry/src/internal/config"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/fetcher/doi"
	"bibentry/src/internal/fetcher/isbn"
	"bibentry/src/internal/fetcher/rfc"
	"bibentry/src/internal/fetcher/web"
	"bibentry/src/internal/fetcher/youtube"
	"bibentry/src/internal/gitutil"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/library"
	"bibentry/src/internal/logging"
	"bibentry/src/internal/lookup"
	"bibentry/src/internal/prefs"
	"bibentry/src/internal/session"
)

// commandContext lazily builds what commands share: config, logger and the
// fetcher registry.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce  sync.Once
	logger   *zap.Logger
	closeLog func()
	logErr   error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.logger, c.closeLog, c.logErr = logging.New(logging.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			File:       cfg.Paths.LogFile,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Console:    os.Stderr,
		})
	})
	return c.logger, c.logErr
}

// close writes the metrics textfile, if configured, and flushes the logger.
func (c *commandContext) close() error {
	var err error
	if c.config != nil && c.config.Metrics.Textfile != "" {
		if werr := lookup.WriteMetrics(c.config.Metrics.Textfile); werr != nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}
	if c.closeLog != nil {
		c.closeLog()
	}
	return err
}

func (c *commandContext) library() (*library.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return library.Open(cfg.Paths.LibraryDir), nil
}

// openSession is the newcmd.Opener for configured runs.
func (c *commandContext) openSession(n session.Notifier) (*session.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	lib := library.Open(cfg.Paths.LibraryDir)
	pipeline := &library.Pipeline{
		Policy: cfg.DuplicatePolicy(),
		Mirror: cfg.Library.BibTeXMirror,
		Logger: logger.Named("import"),
	}
	if cfg.Library.GitCommit {
		repo := gitutil.New(cfg.Paths.LibraryDir)
		repo.Push = cfg.Library.GitPush
		pipeline.Commit = repo.Commit
	}
	return session.Open(session.Deps{
		Registry: buildRegistry(cfg),
		Target:   lib,
		Importer: pipeline,
		Store:    prefs.NewFileStore(cfg.Paths.StateFile),
		Notifier: n,
		Logger:   logger.Named("session"),
	})
}

// buildRegistry creates the enabled fetchers in configured order. Each
// service gets its own rate limiter; all share the HTTP client and cache.
func buildRegistry(cfg *config.Config) *fetcher.Registry {
	client := httpx.NewClient(cfg.HTTPTimeout())
	cache := fetcher.NewCache(cfg.CacheTTL())
	var fs []fetcher.Fetcher
	for _, name := range cfg.Lookup.Fetchers {
		doer := httpx.Limited(client, newLimiter(cfg))
		var f fetcher.Fetcher
		switch name {
		case "DOI":
			f = doi.New(doer)
		case "ISBN":
			f = isbn.New(doer)
		case "RFC":
			f = rfc.New(doer)
		case "YOUTUBE":
			f = youtube.New(doer)
		case "URL":
			f = web.New(doer)
		default:
			continue
		}
		fs = append(fs, fetcher.WithTimeout(fetcher.Cached(f, cache), cfg.LookupTimeout()))
	}
	return fetcher.NewRegistry(fs...)
}

func newLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Lookup.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Lookup.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Lookup.RequestsPerSecond), burst)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
