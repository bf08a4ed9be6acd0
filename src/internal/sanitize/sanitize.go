package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"bibentry/src/internal/schema"
)

// CleanString trims and removes ASCII control characters except tab/newline/carriage
// return up to max runes (if max <= 0, no truncation).
func CleanString(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || (r >= 0x20 && r != 0x7f) {
			b.WriteRune(r)
			n++
			if max > 0 && n >= max {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// CleanURL returns a validated http/https URL or empty string.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Path = strings.ReplaceAll(u.Path, " ", "%20")
	return u.String()
}

// CleanKeywords trims, lowercases, dedupes, and limits keyword count.
func CleanKeywords(keys []string) []string {
	const maxKeywords = 64
	const maxLen = 64
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		k = strings.ToLower(CleanString(k, maxLen))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) >= maxKeywords {
			break
		}
	}
	return out
}

// CleanAuthors drops empty names and strips control characters.
func CleanAuthors(authors schema.Authors) schema.Authors {
	const max = 256
	var out schema.Authors
	for _, a := range authors {
		fam := CleanString(a.Family, max)
		giv := CleanString(a.Given, max)
		if fam == "" && giv == "" {
			continue
		}
		out = append(out, schema.Author{Family: fam, Given: giv})
	}
	return out
}

// CleanEntry applies conservative sanitization to all strings in the entry.
// Fetchers call it on everything they map from remote payloads.
func CleanEntry(e *schema.Entry) {
	if e == nil {
		return
	}
	e.ID = CleanString(e.ID, 64)
	e.Type = schema.EntryType(strings.ToLower(CleanString(string(e.Type), 32)))
	e.APA7.Title = CleanString(e.APA7.Title, 512)
	e.APA7.ContainerTitle = CleanString(e.APA7.ContainerTitle, 512)
	e.APA7.Edition = CleanString(e.APA7.Edition, 128)
	e.APA7.Publisher = CleanString(e.APA7.Publisher, 512)
	e.APA7.PublisherLocation = CleanString(e.APA7.PublisherLocation, 256)
	e.APA7.Journal = CleanString(e.APA7.Journal, 512)
	e.APA7.Volume = CleanString(e.APA7.Volume, 64)
	e.APA7.Issue = CleanString(e.APA7.Issue, 64)
	e.APA7.Pages = CleanString(e.APA7.Pages, 64)
	e.APA7.Number = CleanString(e.APA7.Number, 64)
	e.APA7.DOI = DOI(e.APA7.DOI)
	e.APA7.ISBN = CleanString(e.APA7.ISBN, 64)
	e.APA7.URL = CleanURL(e.APA7.URL)
	e.APA7.Accessed = CleanString(e.APA7.Accessed, 32)
	e.APA7.Date = CleanString(e.APA7.Date, 32)
	e.APA7.Authors = CleanAuthors(e.APA7.Authors)
	e.Annotation.Summary = CleanString(e.Annotation.Summary, 12000)
	e.Annotation.Keywords = CleanKeywords(e.Annotation.Keywords)
}

var doiPattern = regexp.MustCompile(`(?i)10\.\d{4,9}/[-._;()/:A-Z0-9]+`)

// DOI extracts a bare DOI from s, which may be a DOI, a doi: URI, or a
// doi.org URL. The DOI is returned as found; comparisons should fold case.
func DOI(s string) string {
	return strings.TrimSpace(doiPattern.FindString(strings.TrimSpace(s)))
}

// ISBN strips everything but digits and a trailing check character X.
// It returns "" unless the result has 10 or 13 characters.
func ISBN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "ISBN:"), "isbn:")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	out := b.String()
	if i := strings.IndexByte(out, 'X'); i >= 0 && i != len(out)-1 {
		return ""
	}
	if len(out) != 10 && len(out) != 13 {
		return ""
	}
	return out
}

// FirstNonEmpty returns the first string in vals that is non-empty when trimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
