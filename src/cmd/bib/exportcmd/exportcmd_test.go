package exportcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/library"
	"bibentry/src/internal/schema"
)

func seeded(t *testing.T) *library.Library {
	t.Helper()
	lib := library.Open(t.TempDir())
	e := schema.Entry{
		ID:   "00000000-0000-4000-8000-000000000001",
		Type: schema.TypeWebsite,
		APA7: schema.APA7{
			Title:    "Hello",
			URL:      "https://e.example",
			Accessed: "2025-01-01",
			Authors:  schema.Authors{{Family: "Corp"}},
		},
	}
	_, err := lib.Write(e)
	require.NoError(t, err)
	return lib
}

func run(t *testing.T, lib *library.Library, args ...string) string {
	t.Helper()
	cmd := New(func() (*library.Library, error) { return lib, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestExportBibWritesMirror(t *testing.T) {
	lib := seeded(t)

	out := run(t, lib)
	assert.Equal(t, "wrote "+lib.BibPath()+"\n", out)
	data, err := os.ReadFile(lib.BibPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello")
}

func TestExportBibToFile(t *testing.T) {
	lib := seeded(t)
	dest := filepath.Join(t.TempDir(), "out", "refs.bib")

	out := run(t, lib, "-o", dest)
	assert.True(t, strings.HasSuffix(out, "(1 entries)\n"))
	_, err := os.Stat(dest)
	require.NoError(t, err)
}

func TestExportBibToStdout(t *testing.T) {
	lib := seeded(t)

	out := run(t, lib, "-o", "-")
	assert.Contains(t, out, "@")
	assert.Contains(t, out, "Hello")
	_, err := os.Stat(lib.BibPath())
	assert.True(t, os.IsNotExist(err))
}
