// Package web builds entries for web pages from their OpenGraph, JSON-LD and
// standard meta tags.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"bibentry/src/internal/dates"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/names"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

const name = "URL"

const maxBody = 2 << 20

// Fetcher treats an http(s) URL as the identifier of the page it serves.
type Fetcher struct {
	client httpx.Doer
}

func New(client httpx.Doer) *Fetcher { return &Fetcher{client: client} }

func (f *Fetcher) Name() string { return name }

// Recognizes accepts absolute http and https URLs.
func (f *Fetcher) Recognizes(id string) bool { return parse(id) != nil }

func parse(id string) *url.URL {
	u, err := url.ParseRequestURI(strings.TrimSpace(id))
	if err != nil || u.Host == "" {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

// SearchByID downloads the page. Pages that are not HTML, are missing, or
// carry no title are absent results.
func (f *Fetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	u := parse(id)
	if u == nil {
		return nil, fetcher.ClientError("url: %q is not an http(s) URL", strings.TrimSpace(id))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fetcher.ClientError("url: build request: %v", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	httpx.SetUA(req)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetcher.FromTransport(name, err)
	}
	defer resp.Body.Close()
	if fetcher.IsNotFound(resp.StatusCode) {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fetcher.FromStatus(name, resp.StatusCode, httpx.Snippet(resp))
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return nil, nil
	}
	meta, err := scan(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fetcher.FromTransport(name, err)
	}
	e := mapPage(meta, u)
	sanitize.CleanEntry(&e)
	if e.APA7.Title == "" {
		return nil, nil
	}
	if err := e.Validate(); err != nil {
		return nil, nil
	}
	return &e, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// page is what scan collects from a document head.
type page struct {
	title string
	// props holds og:* and article:* properties.
	props map[string]string
	// names holds <meta name=...> values, lower-cased keys.
	names map[string]string
	ld    linkedData
}

type linkedData struct {
	types         []string
	headline      string
	name          string
	description   string
	datePublished string
	publisher     string
	authors       []string
}

// scan tokenizes the document and stops at the end of <head> or at the first
// <body> element.
func scan(r io.Reader) (page, error) {
	p := page{props: map[string]string{}, names: map[string]string{}}
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return p, nil
			}
			return p, z.Err()
		case html.EndTagToken:
			if tn, _ := z.TagName(); string(tn) == "head" {
				return p, nil
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.Data {
			case "body":
				return p, nil
			case "title":
				if z.Next() == html.TextToken && p.title == "" {
					p.title = strings.TrimSpace(string(z.Text()))
				}
			case "meta":
				p.meta(t)
			case "script":
				if attr(t, "type") == "application/ld+json" && z.Next() == html.TextToken {
					if len(p.ld.types) == 0 {
						p.ld = parseLinkedData(z.Text())
					}
				}
			}
		}
	}
}

func (p *page) meta(t html.Token) {
	content := strings.TrimSpace(attr(t, "content"))
	if content == "" {
		return
	}
	if prop := strings.ToLower(attr(t, "property")); strings.HasPrefix(prop, "og:") || strings.HasPrefix(prop, "article:") {
		if _, ok := p.props[prop]; !ok {
			p.props[prop] = content
		}
		return
	}
	if n := strings.ToLower(attr(t, "name")); n != "" {
		if _, ok := p.names[n]; !ok {
			p.names[n] = content
		}
	}
}

func attr(t html.Token, key string) string {
	for _, a := range t.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// parseLinkedData reads a JSON-LD block, which may be one object or an array;
// the first object typed as an article wins, else the first object.
func parseLinkedData(b []byte) linkedData {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return linkedData{}
	}
	var obj map[string]any
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"].([]any); ok {
			obj = pickObject(graph)
		} else {
			obj = t
		}
	case []any:
		obj = pickObject(t)
	}
	if obj == nil {
		return linkedData{}
	}
	ld := linkedData{
		types:         stringList(obj["@type"]),
		publisher:     nameOf(obj["publisher"]),
		authors:       namesOf(obj["author"]),
		headline:      str(obj["headline"]),
		name:          str(obj["name"]),
		description:   str(obj["description"]),
		datePublished: str(obj["datePublished"]),
	}
	return ld
}

func pickObject(items []any) map[string]any {
	var first map[string]any
	for _, it := range items {
		o, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = o
		}
		if isArticle(stringList(o["@type"])) {
			return o
		}
	}
	return first
}

func isArticle(types []string) bool {
	for _, t := range types {
		if strings.Contains(strings.ToLower(t), "article") {
			return true
		}
	}
	return false
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, it := range t {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return str(t["name"])
	}
	return ""
}

func namesOf(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if n := nameOf(it); n != "" {
				out = append(out, n)
			}
		}
	default:
		if n := nameOf(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitAuthors(s string) []string {
	s = strings.ReplaceAll(s, " and ", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hostOf(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func mapPage(p page, u *url.URL) schema.Entry {
	site := sanitize.FirstNonEmpty(p.props["og:site_name"], p.ld.publisher, hostOf(u))
	e := schema.Entry{ID: schema.NewID(), Type: schema.TypeOnline}
	if isArticle(p.ld.types) || p.props["og:type"] == "article" {
		e.Type = schema.TypeArticle
	}
	e.APA7.Title = sanitize.FirstNonEmpty(p.props["og:title"], p.ld.headline, p.ld.name, p.names["citation_title"], p.title)
	e.APA7.ContainerTitle = site
	e.APA7.Publisher = sanitize.FirstNonEmpty(p.ld.publisher, site)
	e.APA7.URL = sanitize.FirstNonEmpty(p.props["og:url"], u.String())
	e.APA7.Accessed = dates.NowISO()
	e.APA7.DOI = sanitize.DOI(p.names["citation_doi"])

	authors := p.ld.authors
	if len(authors) == 0 {
		authors = splitAuthors(sanitize.FirstNonEmpty(p.names["citation_author"], p.names["author"], p.props["article:author"]))
	}
	for _, a := range authors {
		if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
			continue
		}
		e.APA7.Authors = append(e.APA7.Authors, names.Author(a))
	}

	published := sanitize.FirstNonEmpty(p.ld.datePublished, p.props["article:published_time"], p.names["citation_publication_date"], p.names["date"])
	if y := dates.ExtractYear(published); y > 0 {
		e.APA7.Year = &y
	}
	if len(published) >= 10 && published[4] == '-' && published[7] == '-' {
		e.APA7.Date = published[:10]
	}

	desc := sanitize.FirstNonEmpty(p.props["og:description"], p.ld.description, p.names["description"])
	if desc != "" {
		e.Annotation.Summary = desc
	} else {
		e.Annotation.Summary = fmt.Sprintf("Bibliographic record for %s on %s.", e.APA7.Title, site)
	}
	e.Annotation.Keywords = []string{"web"}
	if kw := p.names["keywords"]; kw != "" {
		e.Annotation.Keywords = append(e.Annotation.Keywords, strings.Split(kw, ",")...)
	}
	return e
}
