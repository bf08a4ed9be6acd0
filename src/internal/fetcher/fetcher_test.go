package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/schema"
)

type stubFetcher struct {
	name   string
	prefix string
	calls  int
	entry  *schema.Entry
	err    error
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Recognizes(id string) bool {
	return s.prefix != "" && strings.HasPrefix(id, s.prefix)
}

func (s *stubFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	s.calls++
	if s.entry == nil {
		return nil, s.err
	}
	e := s.entry.Clone()
	return &e, s.err
}

type plainFetcher struct{ name string }

func (p plainFetcher) Name() string { return p.name }
func (p plainFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	return nil, nil
}

func TestClassifyIsTotal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"client", ClientError("malformed identifier"), KindClient},
		{"server", ServerError("bad gateway"), KindServer},
		{"wrapped client", fmt.Errorf("lookup: %w", ClientError("x")), KindClient},
		{"wrapped server", fmt.Errorf("lookup: %w", ServerError("x")), KindServer},
		{"explicit unknown", &Error{Kind: KindUnknown, Message: "?"}, KindUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.err))
			assert.Equal(t, c.want, Classify(c.err), "deterministic")
		})
	}
}

func TestErrorMessageIsDiagnostic(t *testing.T) {
	assert.Equal(t, "malformed identifier", ClientError("malformed identifier").Error())
	e := &Error{Kind: KindServer, Message: "doi: request failed", Err: errors.New("eof")}
	assert.Equal(t, "doi: request failed: eof", e.Error())
	assert.Equal(t, "server error", (&Error{Kind: KindServer}).Error())
}

func TestFromStatus(t *testing.T) {
	assert.Equal(t, KindClient, FromStatus("doi", 400, "").Kind)
	assert.Equal(t, KindServer, FromStatus("doi", 503, "down").Kind)
	assert.Equal(t, KindUnknown, FromStatus("doi", 302, "").Kind)
	assert.Equal(t, "doi: http 503: down", FromStatus("doi", 503, "down").Error())
}

func TestFromTransport(t *testing.T) {
	err := FromTransport("isbn", &net.OpError{Op: "dial", Err: errors.New("refused")})
	assert.Equal(t, KindClient, Classify(err))
	assert.ErrorIs(t, FromTransport("isbn", context.Canceled), context.Canceled)
	assert.Equal(t, KindUnknown, Classify(FromTransport("isbn", context.Canceled)))
	assert.NoError(t, FromTransport("isbn", nil))
	assert.Equal(t, KindServer, Classify(FromDecode("isbn", errors.New("json"))))
}

func TestRegistryOrderAndLookup(t *testing.T) {
	doi := &stubFetcher{name: "DOI", prefix: "10."}
	rfc := &stubFetcher{name: "RFC", prefix: "RFC"}
	r := NewRegistry(doi, nil, rfc, &stubFetcher{name: "DOI"}, plainFetcher{name: "Manual"})

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "DOI", list[0].Name())
	assert.Equal(t, "RFC", list[1].Name())
	assert.Equal(t, "Manual", list[2].Name())

	list[0] = nil
	assert.NotNil(t, r.List()[0], "List returns a copy")

	f, ok := r.ByName("RFC")
	require.True(t, ok)
	assert.Same(t, rfc, f)
	_, ok = r.ByName("rfc")
	assert.False(t, ok)
}

func TestGuess(t *testing.T) {
	r := NewRegistry(plainFetcher{name: "Manual"}, &stubFetcher{name: "DOI", prefix: "10."}, &stubFetcher{name: "RFC", prefix: "RFC"})
	f, ok := r.Guess(" 10.1000/xyz ")
	require.True(t, ok)
	assert.Equal(t, "DOI", f.Name())

	_, ok = r.Guess("bad id")
	assert.False(t, ok)
	_, ok = r.Guess("   ")
	assert.False(t, ok)
}

func TestCachedOnlyKeepsPresentResults(t *testing.T) {
	inner := &stubFetcher{name: "DOI", prefix: "10.", entry: &schema.Entry{ID: "e1", Type: schema.TypeArticle, APA7: schema.APA7{Title: "T"}}}
	f := Cached(inner, NewCache(time.Minute))
	assert.True(t, f.(Recognizer).Recognizes("10.1/x"))

	for i := 0; i < 3; i++ {
		e, err := f.SearchByID(context.Background(), "10.1/x")
		require.NoError(t, err)
		require.NotNil(t, e)
		e.APA7.Title = "mutated"
	}
	assert.Equal(t, 1, inner.calls)

	e, _ := f.SearchByID(context.Background(), "10.1/x ")
	assert.Equal(t, "T", e.APA7.Title, "cached value is not shared with callers")

	empty := &stubFetcher{name: "ISBN"}
	ef := Cached(empty, NewCache(time.Minute))
	_, _ = ef.SearchByID(context.Background(), "1")
	_, _ = ef.SearchByID(context.Background(), "1")
	assert.Equal(t, 2, empty.calls)

	failing := &stubFetcher{name: "RFC", err: ServerError("down")}
	ff := Cached(failing, NewCache(time.Minute))
	_, err := ff.SearchByID(context.Background(), "1")
	require.Error(t, err)
	_, _ = ff.SearchByID(context.Background(), "1")
	assert.Equal(t, 2, failing.calls)
}

type blockingFetcher struct{}

func (blockingFetcher) Name() string { return "slow" }
func (blockingFetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	<-ctx.Done()
	return nil, FromTransport("slow", ctx.Err())
}

func TestWithTimeout(t *testing.T) {
	f := WithTimeout(blockingFetcher{}, 10*time.Millisecond)
	_, err := f.SearchByID(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, KindClient, Classify(err))
	assert.False(t, f.(Recognizer).Recognizes("x"))

	same := blockingFetcher{}
	assert.Equal(t, Fetcher(same), WithTimeout(same, 0))
}
