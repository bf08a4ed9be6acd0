// Package youtube builds entries for YouTube videos from the oEmbed endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"bibentry/src/internal/dates"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

const name = "YOUTUBE"

// DefaultOEmbedURL answers ?format=json&url=<page>.
const DefaultOEmbedURL = "https://www.youtube.com/oembed"

const maxBody = 1 << 20

// Fetcher looks videos up by their page URL.
type Fetcher struct {
	client   httpx.Doer
	endpoint string
}

// New returns a YouTube fetcher using client for all requests.
func New(client httpx.Doer) *Fetcher {
	return &Fetcher{client: client, endpoint: DefaultOEmbedURL}
}

// WithEndpoint points the fetcher at another oEmbed endpoint; used by tests.
func (f *Fetcher) WithEndpoint(u string) *Fetcher {
	f.endpoint = u
	return f
}

func (f *Fetcher) Name() string { return name }

// Recognizes accepts http(s) URLs on youtube.com (and its www, m and music
// hosts) or youtu.be.
func (f *Fetcher) Recognizes(id string) bool { return parse(id) != nil }

func parse(id string) *url.URL {
	u, err := url.ParseRequestURI(strings.TrimSpace(id))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	switch strings.ToLower(u.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return u
	}
	return nil
}

type oembed struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	Provider   string `json:"provider_name"`
}

// SearchByID asks oEmbed about the video. Unknown or private videos are
// absent results.
func (f *Fetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	page := parse(id)
	if page == nil {
		return nil, fetcher.ClientError("youtube: %q is not a YouTube URL", strings.TrimSpace(id))
	}
	ou, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fetcher.ClientError("youtube: bad endpoint: %v", err)
	}
	q := ou.Query()
	q.Set("format", "json")
	q.Set("url", page.String())
	ou.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ou.String(), nil)
	if err != nil {
		return nil, fetcher.ClientError("youtube: build request: %v", err)
	}
	httpx.SetUA(req)
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetcher.FromTransport(name, err)
	}
	defer resp.Body.Close()
	// oEmbed answers 401 for private and embed-disabled videos.
	if fetcher.IsNotFound(resp.StatusCode) || resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fetcher.FromStatus(name, resp.StatusCode, httpx.Snippet(resp))
	}
	var out oembed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return nil, fetcher.FromDecode(name, err)
	}
	e := mapVideo(out, page.String())
	sanitize.CleanEntry(&e)
	if e.APA7.Title == "" {
		return nil, nil
	}
	if err := e.Validate(); err != nil {
		return nil, nil
	}
	return &e, nil
}

func mapVideo(v oembed, pageURL string) schema.Entry {
	e := schema.Entry{ID: schema.NewID(), Type: schema.TypeOnline}
	e.APA7.Title = strings.TrimSpace(v.Title)
	channel := strings.TrimSpace(v.AuthorName)
	// the channel is cited as a group author
	if channel != "" {
		e.APA7.Authors = schema.Authors{{Family: channel}}
	}
	e.APA7.ContainerTitle = "YouTube"
	e.APA7.Publisher = "YouTube"
	e.APA7.URL = pageURL
	e.APA7.Accessed = dates.NowISO()
	if channel != "" {
		e.Annotation.Summary = fmt.Sprintf("YouTube video: %s by %s.", e.APA7.Title, channel)
	} else {
		e.Annotation.Summary = fmt.Sprintf("YouTube video: %s.", e.APA7.Title)
	}
	e.Annotation.Keywords = []string{"video", "youtube"}
	return e
}
