// Package rfc looks IETF RFCs up in the RFC Editor's XML archive.
package rfc

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"bibentry/src/internal/dates"
	"bibentry/src/internal/fetcher"
	"bibentry/src/internal/httpx"
	"bibentry/src/internal/names"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

const name = "RFC"

// DefaultBaseURL serves rfcNNNN.xml documents.
const DefaultBaseURL = "https://www.rfc-editor.org/rfc"

// Fetcher looks RFCs up by number.
type Fetcher struct {
	client  httpx.Doer
	baseURL string
}

// New returns an RFC fetcher using client for all requests.
func New(client httpx.Doer) *Fetcher {
	return &Fetcher{client: client, baseURL: DefaultBaseURL}
}

// WithBaseURL points the fetcher at another archive; used by tests.
func (f *Fetcher) WithBaseURL(u string) *Fetcher {
	f.baseURL = strings.TrimRight(u, "/")
	return f
}

func (f *Fetcher) Name() string { return name }

var rfcPattern = regexp.MustCompile(`(?i)^rfc[\s-]*(\d{1,5})$`)

// Recognizes accepts "RFC 5424", "rfc5424" and "RFC-5424". Bare numbers are
// left to explicit selection since they are ambiguous.
func (f *Fetcher) Recognizes(id string) bool {
	return rfcPattern.MatchString(strings.TrimSpace(id))
}

// Number extracts the RFC number from "RFC 5424", "rfc5424" or "5424".
func Number(id string) string {
	id = strings.TrimSpace(id)
	if m := rfcPattern.FindStringSubmatch(id); m != nil {
		id = m[1]
	}
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

type rfcXML struct {
	XMLName xml.Name `xml:"rfc"`
	Number  string   `xml:"number,attr"`
	Front   frontXML `xml:"front"`
}

type frontXML struct {
	Title       string          `xml:"title"`
	Authors     []authorXML     `xml:"author"`
	Date        dateXML         `xml:"date"`
	SeriesInfos []seriesInfoXML `xml:"seriesInfo"`
	Abstract    abstractXML     `xml:"abstract"`
	Keywords    []string        `xml:"keyword"`
}

type authorXML struct {
	FullName string `xml:"fullname,attr"`
	Surname  string `xml:"surname,attr"`
	Initials string `xml:"initials,attr"`
	Org      string `xml:"organization"`
}

type dateXML struct {
	Month string `xml:"month,attr"`
	Year  string `xml:"year,attr"`
	Day   string `xml:"day,attr"`
}

type seriesInfoXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type abstractXML struct {
	Paras []string `xml:"t"`
}

// SearchByID fetches rfcNNNN.xml. An RFC the archive does not have yields an
// absent result.
func (f *Fetcher) SearchByID(ctx context.Context, id string) (*schema.Entry, error) {
	num := Number(id)
	if num == "" {
		return nil, fetcher.ClientError("rfc: %q is not an RFC number", strings.TrimSpace(id))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/rfc%s.xml", f.baseURL, num), nil)
	if err != nil {
		return nil, fetcher.ClientError("rfc: build request: %v", err)
	}
	req.Header.Set("Accept", "application/xml")
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
	var doc rfcXML
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&doc); err != nil {
		return nil, fetcher.FromDecode(name, err)
	}
	e := mapRFC(doc, num)
	sanitize.CleanEntry(&e)
	if e.APA7.Title == "" {
		return nil, nil
	}
	if err := e.Validate(); err != nil {
		return nil, nil
	}
	return &e, nil
}

func mapRFC(doc rfcXML, num string) schema.Entry {
	e := schema.Entry{ID: schema.NewID(), Type: schema.TypeRFC}
	e.APA7.Title = strings.Join(strings.Fields(doc.Front.Title), " ")
	e.APA7.Number = num
	e.APA7.ContainerTitle = "RFC " + num
	e.APA7.Publisher = "Internet Engineering Task Force"
	e.APA7.URL = fmt.Sprintf("https://www.rfc-editor.org/rfc/rfc%s.html", num)
	e.APA7.Accessed = dates.NowISO()
	if y, err := strconv.Atoi(strings.TrimSpace(doc.Front.Date.Year)); err == nil && y > 0 {
		e.APA7.Year = &y
		if m := dates.MonthNumber(doc.Front.Date.Month); m > 0 {
			d, err := strconv.Atoi(strings.TrimSpace(doc.Front.Date.Day))
			if err != nil || d <= 0 {
				d = 1
			}
			e.APA7.Date = fmt.Sprintf("%04d-%02d-%02d", y, m, d)
		}
	}
	for _, a := range doc.Front.Authors {
		switch {
		case strings.TrimSpace(a.Surname) != "":
			e.APA7.Authors = append(e.APA7.Authors, schema.Author{Family: a.Surname, Given: a.Initials})
		case strings.TrimSpace(a.FullName) != "":
			e.APA7.Authors = append(e.APA7.Authors, names.Author(a.FullName))
		case strings.TrimSpace(a.Org) != "":
			e.APA7.Authors = append(e.APA7.Authors, schema.Author{Family: a.Org})
		}
	}
	for _, si := range doc.Front.SeriesInfos {
		if strings.EqualFold(strings.TrimSpace(si.Name), "DOI") {
			e.APA7.DOI = si.Value
		}
	}
	if e.APA7.DOI == "" {
		n, _ := strconv.Atoi(num)
		e.APA7.DOI = fmt.Sprintf("10.17487/RFC%04d", n)
	}
	var paras []string
	for _, p := range doc.Front.Abstract.Paras {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) > 0 {
		e.Annotation.Summary = strings.Join(paras, "\n\n")
	} else if e.APA7.Title != "" {
		e.Annotation.Summary = fmt.Sprintf("Bibliographic record for %s (RFC %s).", e.APA7.Title, num)
	}
	e.Annotation.Keywords = append([]string{"rfc", "ietf"}, doc.Front.Keywords...)
	return e
}
