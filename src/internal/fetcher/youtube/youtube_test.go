package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/schema"
)

type testHTTP struct {
	status int
	body   string
	err    error
	reqs   []*http.Request
}

func (h *testHTTP) Do(req *http.Request) (*http.Response, error) {
	h.reqs = append(h.reqs, req)
	if h.err != nil {
		return nil, h.err
	}
	return &http.Response{StatusCode: h.status, Body: io.NopCloser(strings.NewReader(h.body)), Header: http.Header{}}, nil
}

func TestRecognizes(t *testing.T) {
	f := New(&testHTTP{})
	for _, id := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=x",
		"https://m.youtube.com/watch?v=x",
		" https://youtu.be/dQw4w9WgXcQ ",
		"https://WWW.YOUTUBE.COM/watch?v=x",
	} {
		assert.True(t, f.Recognizes(id), id)
	}
	for _, id := range []string{
		"https://vimeo.com/1",
		"https://notyoutube.com/watch?v=x",
		"youtube.com/watch?v=x",
		"ftp://youtu.be/x",
		"10.1000/xyz",
	} {
		assert.False(t, f.Recognizes(id), id)
	}
}

func TestSearchByIDMapsVideo(t *testing.T) {
	h := &testHTTP{status: 200, body: `{"title":"Cool","author_name":"Chan","provider_name":"YouTube"}`}
	e, err := New(h).WithEndpoint("https://oembed.test/oembed").SearchByID(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	require.NotNil(t, e)

	require.Len(t, h.reqs, 1)
	got := h.reqs[0].URL
	assert.Equal(t, "oembed.test", got.Host)
	assert.Equal(t, url.Values{"format": {"json"}, "url": {"https://youtu.be/abc"}}, got.Query())
	assert.Equal(t, "application/json", h.reqs[0].Header.Get("Accept"))
	assert.NotEmpty(t, h.reqs[0].Header.Get("User-Agent"))

	assert.Equal(t, schema.TypeOnline, e.Type)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Cool", e.APA7.Title)
	assert.Equal(t, schema.Authors{{Family: "Chan"}}, e.APA7.Authors)
	assert.Equal(t, "YouTube", e.APA7.ContainerTitle)
	assert.Equal(t, "YouTube", e.APA7.Publisher)
	assert.Equal(t, "https://youtu.be/abc", e.APA7.URL)
	assert.NotEmpty(t, e.APA7.Accessed)
	assert.Equal(t, "YouTube video: Cool by Chan.", e.Annotation.Summary)
	assert.Equal(t, []string{"video", "youtube"}, e.Annotation.Keywords)
	assert.NoError(t, e.Validate())
}

func TestSearchByIDWithoutChannel(t *testing.T) {
	h := &testHTTP{status: 200, body: `{"title":"Solo"}`}
	e, err := New(h).SearchByID(context.Background(), "https://www.youtube.com/watch?v=x")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Empty(t, e.APA7.Authors)
	assert.Equal(t, "YouTube video: Solo.", e.Annotation.Summary)
	assert.True(t, strings.HasPrefix(h.reqs[0].URL.String(), DefaultOEmbedURL+"?"))
}

func TestSearchByIDAbsent(t *testing.T) {
	for _, h := range []*testHTTP{
		{status: 404},
		{status: 401, body: "Unauthorized"},
		{status: 200, body: `{"title":"  "}`},
	} {
		e, err := New(h).SearchByID(context.Background(), "https://youtu.be/gone")
		require.NoError(t, err)
		assert.Nil(t, e)
	}
}

func TestSearchByIDErrors(t *testing.T) {
	f := New(&testHTTP{status: 503, body: "busy"})
	_, err := f.SearchByID(context.Background(), "https://youtu.be/x")
	assert.Equal(t, fetcher.KindServer, fetcher.Classify(err))
	assert.Contains(t, err.Error(), "YOUTUBE: http 503")

	_, err = New(&testHTTP{status: 400}).SearchByID(context.Background(), "https://youtu.be/x")
	assert.Equal(t, fetcher.KindClient, fetcher.Classify(err))

	_, err = New(&testHTTP{err: errors.New("dial tcp: no such host")}).SearchByID(context.Background(), "https://youtu.be/x")
	assert.Equal(t, fetcher.KindClient, fetcher.Classify(err))

	_, err = New(&testHTTP{status: 200, body: "<html>"}).SearchByID(context.Background(), "https://youtu.be/x")
	assert.Equal(t, fetcher.KindServer, fetcher.Classify(err))

	h := &testHTTP{status: 200}
	_, err = New(h).SearchByID(context.Background(), "https://vimeo.com/1")
	assert.Equal(t, fetcher.KindClient, fetcher.Classify(err))
	assert.Empty(t, h.reqs, "nothing is requested for a foreign URL")
}
