package newcmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/library"
	"bibentry/src/internal/prefs"
	"bibentry/src/internal/schema"
	"bibentry/src/internal/session"
)

type stubFetcher struct {
	name   string
	prefix string
	search func(ctx context.Context, id string) (*schema.Entry, error)
}

func (f stubFetcher) Name() string { return f.name }
func (f stubFetcher) Recognizes(id string) bool { return strings.HasPrefix(id, f.prefix) }
func (f stubFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	return f.search(ctx, id)
}

type harness struct {
	lib   *library.Library
	store *prefs.MemoryStore
	open  Opener
}

func newHarness(t *testing.T, fs ...fetcher.Fetcher) *harness {
	t.Helper()
	h := &harness{
		lib:   library.Open(t.TempDir()),
		store: prefs.NewMemoryStore(nil),
	}
	reg := fetcher.NewRegistry(fs...)
	h.open = func(n session.Notifier) (*session.Session, error) {
		return session.Open(session.Deps{
			Registry: reg,
			Target:   h.lib,
			Importer: &library.Pipeline{Policy: library.PolicyMerge},
			Store:    h.store,
			Notifier: n,
		})
	}
	return h
}

func execCmd(ctx context.Context, h *harness, args ...string) (string, string, error) {
	cmd := New(h.open).Command()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func found(title string) func(context.Context, string) (*schema.Entry, error) {
	return func(context.Context, string) (*schema.Entry, error) {
		y := 2020
		e := schema.Entry{Type: schema.TypeArticle, APA7: schema.APA7{
			Title:   title,
			Year:    &y,
			DOI:     "10.1000/xyz",
			Authors: schema.Authors{{Family: "Doe", Given: "J."}},
		}}
		return &e, nil
	}
}

func TestLookupImportsEntry(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: found("A Paper")})

	out, _, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.NoError(t, err)
	assert.Contains(t, out, "Looking up 10.1000/xyz with DOI...")
	assert.Contains(t, out, "Found article: Doe (2020). A Paper")
	assert.Contains(t, out, "inserted ")

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A Paper", entries[0].APA7.Title)

	p, _ := h.store.Load()
	assert.Equal(t, string(session.LookupIdentifier), p.Approach)
}

func TestLookupSecondTimeMerges(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: found("A Paper")})

	_, _, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.NoError(t, err)
	out, _, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.NoError(t, err)
	assert.Contains(t, out, "merged ")

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLookupFailureExplainsCause(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: func(context.Context, string) (*schema.Entry, error) {
		return nil, &fetcher.Error{Kind: fetcher.KindServer, Fetcher: "DOI", Message: "HTTP 503"}
	}})

	_, errOut, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.ErrorIs(t, err, ErrNoEntry)
	assert.Contains(t, errOut, "Failed to lookup identifier")
	assert.Contains(t, errOut, msgServerCause)
	assert.Contains(t, errOut, "HTTP 503")
}

func TestLookupEmptyResult(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: func(context.Context, string) (*schema.Entry, error) {
		return nil, nil
	}})

	_, errOut, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.ErrorIs(t, err, ErrNoEntry)
	assert.Contains(t, errOut, "Invalid result returned")
	assert.Contains(t, errOut, "added manually")
}

func TestLookupWithoutMatchingFetcher(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: found("x")})

	_, _, err := execCmd(context.Background(), h, "lookup", "not-an-id")
	require.ErrorIs(t, err, session.ErrNoFetcher)
}

func TestLookupExplicitFetcherIsRemembered(t *testing.T) {
	h := newHarness(t,
		stubFetcher{name: "DOI", prefix: "10.", search: found("x")},
		stubFetcher{name: "ISBN", prefix: "97", search: found("Book")},
	)

	out, _, err := execCmd(context.Background(), h, "lookup", "--fetcher", "ISBN", "whatever")
	require.NoError(t, err)
	assert.Contains(t, out, "with ISBN...")

	p, _ := h.store.Load()
	assert.False(t, p.IDLookupGuessing)
	assert.Equal(t, "ISBN", p.LastFetcher)

	out, _, err = execCmd(context.Background(), h, "guess")
	require.NoError(t, err)
	assert.Equal(t, "guessing: off (fetcher: ISBN)\n", out)
}

func TestLookupUnknownFetcher(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: found("x")})

	_, _, err := execCmd(context.Background(), h, "lookup", "--fetcher", "NOPE", "10.1/x")
	require.ErrorIs(t, err, session.ErrUnknownFetcher)
}

func TestLookupInterruptCancels(t *testing.T) {
	started := make(chan struct{})
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: func(ctx context.Context, _ string) (*schema.Entry, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		cancel()
	}()

	_, _, err := execCmd(ctx, h, "lookup", "10.1000/slow")
	require.ErrorIs(t, err, ErrCancelled)

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLookupCommitFailureStillReportsEntry(t *testing.T) {
	h := newHarness(t)
	reg := fetcher.NewRegistry(stubFetcher{name: "DOI", prefix: "10.", search: found("A Paper")})
	h.open = func(n session.Notifier) (*session.Session, error) {
		return session.Open(session.Deps{
			Registry: reg,
			Target:   h.lib,
			Importer: &library.Pipeline{Policy: library.PolicyMerge, Commit: func(context.Context, []string, string) error {
				return errors.New("git not found")
			}},
			Store:    h.store,
			Notifier: n,
		})
	}

	out, _, err := execCmd(context.Background(), h, "lookup", "10.1000/xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git not found")
	assert.Contains(t, out, "inserted ")

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTypeCreatesEmptyEntry(t *testing.T) {
	h := newHarness(t)

	out, _, err := execCmd(context.Background(), h, "type", "Book")
	require.NoError(t, err)
	assert.Contains(t, out, "inserted ")

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, schema.TypeBook, entries[0].Type)
	_, statErr := os.Stat(h.lib.Path(entries[0]))
	assert.NoError(t, statErr)

	p, _ := h.store.Load()
	assert.Equal(t, schema.TypeBook, p.LastInstantType)
}

func TestTypeListsTypes(t *testing.T) {
	h := newHarness(t)

	out, _, err := execCmd(context.Background(), h, "type")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Recommended:\n  article\n"))
	assert.Contains(t, out, "Other:\n")
	assert.Contains(t, out, "  rfc\n")
	assert.Equal(t, 1, strings.Count(out, "  article\n"))
}

func TestTypeRejectsUnknown(t *testing.T) {
	h := newHarness(t)

	_, _, err := execCmd(context.Background(), h, "type", "scroll")
	require.Error(t, err)
}

func TestInstantUsesLastType(t *testing.T) {
	h := newHarness(t)

	_, _, err := execCmd(context.Background(), h, "type", "rfc")
	require.NoError(t, err)
	_, _, err = execCmd(context.Background(), h, "instant")
	require.NoError(t, err)

	entries, err := h.lib.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, schema.TypeRFC, e.Type)
	}
}

func TestApproachShowAndSwitch(t *testing.T) {
	h := newHarness(t)

	out, _, err := execCmd(context.Background(), h, "approach")
	require.NoError(t, err)
	assert.Equal(t, "approach: create-entry (confirm: Select, disabled)\n", out)

	out, _, err = execCmd(context.Background(), h, "approach", "lookup")
	require.NoError(t, err)
	assert.Equal(t, "approach: lookup-identifier (confirm: Lookup, enabled)\n", out)

	p, _ := h.store.Load()
	assert.Equal(t, "lookup-identifier", p.Approach)

	_, _, err = execCmd(context.Background(), h, "approach", "telepathy")
	require.ErrorIs(t, err, session.ErrUnknownApproach)
}

func TestGuessToggle(t *testing.T) {
	h := newHarness(t, stubFetcher{name: "DOI", prefix: "10.", search: found("x")})

	out, _, err := execCmd(context.Background(), h, "guess", "off")
	require.NoError(t, err)
	assert.Equal(t, "guessing: off (fetcher: DOI)\n", out)

	out, _, err = execCmd(context.Background(), h, "guess", "on")
	require.NoError(t, err)
	assert.Equal(t, "guessing: on\n", out)

	_, _, err = execCmd(context.Background(), h, "guess", "maybe")
	require.Error(t, err)
}

func TestFailureText(t *testing.T) {
	assert.Equal(t, msgNotRetrieved+"\n"+msgClientCause+"\nboom", FailureText(fetcher.KindClient, "boom"))
	assert.Equal(t, msgNotRetrieved+"\n"+msgUnknownCause+"\nboom", FailureText(fetcher.KindUnknown, "boom"))
}
