package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/config"
)

type env struct {
	dir     string
	config  string
	library string
	state   string
	metrics string
}

func newEnv(t *testing.T) env {
	t.Helper()
	for _, k := range []string{"BIB_LIBRARY_DIR", "BIB_STATE_FILE", "BIB_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	e := env{
		dir:     dir,
		config:  filepath.Join(dir, "bib.toml"),
		library: filepath.Join(dir, "lib"),
		state:   filepath.Join(dir, "state", "new-entry.yaml"),
		metrics: filepath.Join(dir, "bib.prom"),
	}
	body := fmt.Sprintf(`[paths]
library_dir = %q
state_file = %q

[logging]
level = "warn"

[metrics]
textfile = %q
`, e.library, e.state, e.metrics)
	require.NoError(t, os.WriteFile(e.config, []byte(body), 0o644))
	return e
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, cleanup := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if cerr := cleanup(); err == nil {
		err = cerr
	}
	return out.String(), err
}

func TestExecuteHelp(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"new", "export-bib", "fetchers", "config"} {
		assert.Contains(t, out, name)
	}
}

func TestNewTypeWritesEntryStateAndMetrics(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, "--config", e.config, "new", "type", "article")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted "+filepath.Join(e.library, "citations", "article"))

	_, err = os.Stat(filepath.Join(e.library, "library.bib"))
	assert.NoError(t, err)
	state, err := os.ReadFile(e.state)
	require.NoError(t, err)
	assert.Contains(t, string(state), "last_instant_type: article")
	_, err = os.Stat(e.metrics)
	assert.NoError(t, err)
}

func TestFetchersTable(t *testing.T) {
	e := newEnv(t)

	out, err := run(t, "--config", e.config, "fetchers")
	require.NoError(t, err)
	for _, name := range []string{"DOI", "ISBN", "RFC", "YOUTUBE", "URL", "youtube.com or youtu.be URL"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Lookups are guessing from the identifier.")

	_, err = run(t, "--config", e.config, "new", "guess", "off")
	require.NoError(t, err)
	out, err = run(t, "--config", e.config, "fetchers")
	require.NoError(t, err)
	assert.Contains(t, out, "Lookups are using the selected fetcher.")
}

func TestRegistryGuessesYouTubeBeforeURL(t *testing.T) {
	cfg := config.Default()
	reg := buildRegistry(&cfg)

	var names []string
	for _, f := range reg.List() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"DOI", "ISBN", "RFC", "YOUTUBE", "URL"}, names)

	f, ok := reg.Guess("https://youtu.be/dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, "YOUTUBE", f.Name())
	f, ok = reg.Guess("https://example.org/page")
	require.True(t, ok)
	assert.Equal(t, "URL", f.Name())
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := run(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	_, err = run(t, "config", "init", "--path", target)
	require.Error(t, err)
	_, err = run(t, "config", "init", "--path", target, "--overwrite")
	require.NoError(t, err)

	out, err = run(t, "--config", target, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "config: "+target)
}

func TestInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[bogus]\nkey = 1\n"), 0o644))

	_, err := run(t, "--config", path, "fetchers")
	require.Error(t, err)
}
