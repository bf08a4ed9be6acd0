// Package isbn looks books up by ISBN on OpenLibrary, falling back to
// Google Books when OpenLibrary has no record.
package isbn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bibentry/src/internal/dates"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/names"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

const name = "ISBN"

const (
	DefaultOpenLibraryURL = "https://openlibrary.org"
	DefaultGoogleBooksURL = "https://www.googleapis.com"
)

// Fetcher looks books up by ISBN.
type Fetcher struct {
	client      httpx.Doer
	openLibrary string
	googleBooks string
}

// New returns an ISBN fetcher using client for all requests.
func New(client httpx.Doer) *Fetcher {
	return &Fetcher{client: client, openLibrary: DefaultOpenLibraryURL, googleBooks: DefaultGoogleBooksURL}
}

// WithBaseURLs overrides both service roots; used by tests.
func (f *Fetcher) WithBaseURLs(openLibrary, googleBooks string) *Fetcher {
	f.openLibrary = strings.TrimRight(openLibrary, "/")
	f.googleBooks = strings.TrimRight(googleBooks, "/")
	return f
}

func (f *Fetcher) Name() string { return name }

// Recognizes accepts ISBN-10 and ISBN-13 with a valid check digit.
func (f *Fetcher) Recognizes(id string) bool { return Valid(id) }

// SearchByID returns the first record found for id, or nil when neither
// service knows the ISBN.
func (f *Fetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	norm := sanitize.ISBN(id)
	if norm == "" || !Valid(norm) {
		return nil, fetcher.ClientError("isbn: %q is not a valid ISBN", strings.TrimSpace(id))
	}
	e, err := f.openLibraryByISBN(ctx, norm)
	if err != nil {
		return nil, err
	}
	if e == nil {
		if e, err = f.googleBooksByISBN(ctx, norm); err != nil {
			return nil, err
		}
	}
	if e == nil {
		return nil, nil
	}
	sanitize.CleanEntry(e)
	if e.APA7.Title == "" {
		return nil, nil
	}
	e.ID = schema.NewID()
	if len(e.Annotation.Keywords) == 0 {
		e.Annotation.Keywords = []string{"book"}
	}
	if err := e.Validate(); err != nil {
		return nil, nil
	}
	return e, nil
}

func (f *Fetcher) getJSON(ctx context.Context, service, endpoint string, into any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fetcher.ClientError("%s: build request: %v", service, err)
	}
	req.Header.Set("Accept", "application/json")
	httpx.SetUA(req)
	resp, err := f.client.Do(req)
	if err != nil {
		return false, fetcher.FromTransport(service, err)
	}
	defer resp.Body.Close()
	if fetcher.IsNotFound(resp.StatusCode) {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fetcher.FromStatus(service, resp.StatusCode, httpx.Snippet(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return false, fetcher.FromDecode(service, err)
	}
	return true, nil
}

type olData struct {
	Title       string                  `json:"title"`
	Subtitle    string                  `json:"subtitle"`
	PublishDate string                  `json:"publish_date"`
	URL         string                  `json:"url"`
	Authors     []struct{ Name string } `json:"authors"`
	Publishers  []struct{ Name string } `json:"publishers"`
	Places      []struct{ Name string } `json:"publish_places"`
	Subjects    []struct{ Name string } `json:"subjects"`
}

func (f *Fetcher) openLibraryByISBN(ctx context.Context, isbn string) (*schema.Entry, error) {
	q := url.Values{}
	q.Set("bibkeys", "ISBN:"+isbn)
	q.Set("format", "json")
	q.Set("jscmd", "data")
	var raw map[string]olData
	ok, err := f.getJSON(ctx, "openlibrary", f.openLibrary+"/api/books?"+q.Encode(), &raw)
	if err != nil || !ok {
		return nil, err
	}
	data, ok := raw["ISBN:"+isbn]
	if !ok {
		return nil, nil
	}
	e := mapOpenLibrary(data, isbn)
	return &e, nil
}

func mapOpenLibrary(data olData, isbn string) schema.Entry {
	e := schema.Entry{Type: schema.TypeBook}
	e.APA7.Title = data.Title
	if s := strings.TrimSpace(data.Subtitle); s != "" {
		e.APA7.Title += ": " + s
	}
	if len(data.Publishers) > 0 {
		e.APA7.Publisher = data.Publishers[0].Name
	}
	if len(data.Places) > 0 {
		e.APA7.PublisherLocation = data.Places[0].Name
	}
	e.APA7.ISBN = isbn
	if strings.TrimSpace(data.URL) != "" {
		e.APA7.URL = data.URL
		e.APA7.Accessed = dates.NowISO()
	}
	if y := dates.ExtractYear(data.PublishDate); y > 0 {
		e.APA7.Year = &y
	}
	for _, a := range data.Authors {
		e.APA7.Authors = append(e.APA7.Authors, names.Author(a.Name))
	}
	for _, s := range data.Subjects {
		e.Annotation.Keywords = append(e.Annotation.Keywords, s.Name)
	}
	e.Annotation.Summary = recordSummary(e, "OpenLibrary")
	return e
}

type gBooksResp struct {
	Items []struct {
		VolumeInfo gVolume `json:"volumeInfo"`
	} `json:"items"`
}

type gVolume struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	Description   string   `json:"description"`
	Categories    []string `json:"categories"`
	InfoLink      string   `json:"infoLink"`
}

func (f *Fetcher) googleBooksByISBN(ctx context.Context, isbn string) (*schema.Entry, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	var r gBooksResp
	ok, err := f.getJSON(ctx, "googlebooks", f.googleBooks+"/books/v1/volumes?"+q.Encode(), &r)
	if err != nil || !ok || len(r.Items) == 0 {
		return nil, err
	}
	e := mapGoogleBook(r.Items[0].VolumeInfo, isbn)
	return &e, nil
}

func mapGoogleBook(v gVolume, isbn string) schema.Entry {
	e := schema.Entry{Type: schema.TypeBook}
	e.APA7.Title = v.Title
	if s := strings.TrimSpace(v.Subtitle); s != "" {
		e.APA7.Title += ": " + s
	}
	e.APA7.Publisher = v.Publisher
	e.APA7.ISBN = isbn
	if y := dates.ExtractYear(v.PublishedDate); y > 0 {
		e.APA7.Year = &y
	}
	if strings.TrimSpace(v.InfoLink) != "" {
		e.APA7.URL = v.InfoLink
		e.APA7.Accessed = dates.NowISO()
	}
	for _, a := range v.Authors {
		e.APA7.Authors = append(e.APA7.Authors, names.Author(a))
	}
	e.Annotation.Keywords = append(e.Annotation.Keywords, v.Categories...)
	e.Annotation.Summary = strings.TrimSpace(v.Description)
	if e.Annotation.Summary == "" {
		e.Annotation.Summary = recordSummary(e, "Google Books")
	}
	return e
}

func recordSummary(e schema.Entry, source string) string {
	if strings.TrimSpace(e.APA7.Title) == "" {
		return ""
	}
	switch {
	case e.APA7.Publisher != "" && e.APA7.Year != nil:
		return fmt.Sprintf("Bibliographic record for %s (%s, %d) from %s.", e.APA7.Title, e.APA7.Publisher, *e.APA7.Year, source)
	case e.APA7.Publisher != "":
		return fmt.Sprintf("Bibliographic record for %s (%s) from %s.", e.APA7.Title, e.APA7.Publisher, source)
	}
	return fmt.Sprintf("Bibliographic record for %s from %s.", e.APA7.Title, source)
}

// Valid reports whether s is an ISBN-10 or ISBN-13 with a correct check digit.
func Valid(s string) bool {
	n := sanitize.ISBN(s)
	switch len(n) {
	case 10:
		sum := 0
		for i, r := range n {
			d := int(r - '0')
			if r == 'X' {
				d = 10
			}
			sum += (10 - i) * d
		}
		return sum%11 == 0
	case 13:
		if strings.ContainsRune(n, 'X') {
			return false
		}
		sum := 0
		for i, r := range n {
			d := int(r - '0')
			if i%2 == 1 {
				d *= 3
			}
			sum += d
		}
		return sum%10 == 0
	}
	return false
}
