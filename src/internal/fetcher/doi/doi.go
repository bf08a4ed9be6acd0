// Package doi resolves DOIs through doi.org content negotiation.
package doi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bibentry/src/internal/dates"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/names"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

const name = "DOI"

// DefaultBaseURL is the resolver queried for CSL JSON.
const DefaultBaseURL = "https://doi.org/"

// Fetcher looks entries up by DOI.
type Fetcher struct {
	client  httpx.Doer
	baseURL string
}

// New returns a DOI fetcher using client for all requests.
func New(client httpx.Doer) *Fetcher {
	return &Fetcher{client: client, baseURL: DefaultBaseURL}
}

// WithBaseURL points the fetcher at another resolver; used by tests.
func (f *Fetcher) WithBaseURL(u string) *Fetcher {
	f.baseURL = strings.TrimRight(u, "/") + "/"
	return f
}

func (f *Fetcher) Name() string { return name }

// Recognizes accepts bare DOIs, doi: URIs and doi.org URLs.
func (f *Fetcher) Recognizes(id string) bool { return sanitize.DOI(id) != "" }

// SearchByID fetches CSL JSON for id. An unknown DOI or a record without a
// title yields an absent result.
func (f *Fetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	doi := sanitize.DOI(id)
	if doi == "" {
		return nil, fetcher.ClientError("doi: %q is not a valid DOI", strings.TrimSpace(id))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+doi, nil)
	if err != nil {
		return nil, fetcher.ClientError("doi: build request: %v", err)
	}
	req.Header.Set("Accept", "application/vnd.citationstyles.csl+json")
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
	var csl CSL
	if err := json.NewDecoder(resp.Body).Decode(&csl); err != nil {
		return nil, fetcher.FromDecode(name, err)
	}
	e := mapCSLToEntry(csl)
	sanitize.CleanEntry(&e)
	if e.APA7.Title == "" {
		return nil, nil
	}
	if e.APA7.DOI == "" {
		e.APA7.DOI = doi
	}
	e.APA7.URL = DefaultBaseURL + e.APA7.DOI
	e.APA7.Accessed = dates.NowISO()
	e.ID = schema.NewID()
	if len(e.Annotation.Keywords) == 0 {
		e.Annotation.Keywords = []string{string(e.Type)}
	}
	if e.Annotation.Summary == "" {
		if j := sanitize.FirstNonEmpty(e.APA7.Journal, e.APA7.ContainerTitle); j != "" {
			e.Annotation.Summary = fmt.Sprintf("Bibliographic record for %s in %s via DOI metadata.", e.APA7.Title, j)
		} else {
			e.Annotation.Summary = fmt.Sprintf("Bibliographic record for %s via DOI metadata.", e.APA7.Title)
		}
	}
	if err := e.Validate(); err != nil {
		return nil, nil
	}
	return &e, nil
}

// CSL is a partial model of the citationstyles JSON
type CSL struct {
	Title          any         `json:"title"`
	Author         []CSLAuthor `json:"author"`
	ContainerTitle any         `json:"container-title"`
	Issued         CSLIssued   `json:"issued"`
	Volume         any         `json:"volume"`
	Issue          any         `json:"issue"`
	Page           string      `json:"page"`
	DOI            string      `json:"DOI"`
	ISBN           any         `json:"ISBN"`
	Publisher      string      `json:"publisher"`
	Type           string      `json:"type"`
	Subject        []string    `json:"subject"`
}

type CSLAuthor struct {
	Given   string `json:"given"`
	Family  string `json:"family"`
	Literal string `json:"literal"`
}

type CSLIssued struct {
	DateParts [][]int `json:"date-parts"`
}

var cslTypes = map[string]schema.EntryType{
	"article-journal":  schema.TypeArticle,
	"article-magazine": schema.TypeArticle,
	"article":          schema.TypeArticle,
	"journal-article":  schema.TypeArticle,
	"paper-conference": schema.TypeInProceedings,
	"proceedings":      schema.TypeProceedings,
	"book":             schema.TypeBook,
	"monograph":        schema.TypeBook,
	"chapter":          schema.TypeInCollection,
	"dataset":          schema.TypeDataset,
	"report":           schema.TypeReport,
	"thesis":           schema.TypeThesis,
	"software":         schema.TypeSoftware,
	"webpage":          schema.TypeOnline,
}

func entryType(csl string) schema.EntryType {
	if t, ok := cslTypes[strings.ToLower(strings.TrimSpace(csl))]; ok {
		return t
	}
	return schema.TypeMisc
}

// mapCSLToEntry converts a minimal CSL JSON structure into an Entry.
func mapCSLToEntry(c CSL) schema.Entry {
	var e schema.Entry
	e.Type = entryType(c.Type)
	e.APA7.Title = toString(c.Title)
	e.APA7.ContainerTitle = toString(c.ContainerTitle)
	if e.Type == schema.TypeArticle {
		e.APA7.Journal = e.APA7.ContainerTitle
	}
	if y, d := dates.FromParts(c.Issued.DateParts); y > 0 {
		e.APA7.Year = &y
		e.APA7.Date = d
	}
	e.APA7.Volume = toString(c.Volume)
	e.APA7.Issue = toString(c.Issue)
	e.APA7.Pages = c.Page
	e.APA7.DOI = c.DOI
	e.APA7.ISBN = sanitize.ISBN(toString(c.ISBN))
	e.APA7.Publisher = c.Publisher
	for _, a := range c.Author {
		switch {
		case strings.TrimSpace(a.Family) != "":
			e.APA7.Authors = append(e.APA7.Authors, schema.Author{Family: a.Family, Given: names.Initials(a.Given)})
		case strings.TrimSpace(a.Literal) != "":
			e.APA7.Authors = append(e.APA7.Authors, schema.Author{Family: a.Literal})
		}
	}
	e.Annotation.Keywords = c.Subject
	return e
}

// toString coerces a string, number, or first element of an array to a string.
func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case []any:
		if len(t) > 0 {
			return toString(t[0])
		}
	}
	return ""
}
