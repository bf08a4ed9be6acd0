package library

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bibentry/src/internal/names"
	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

// BibPath is the location of the BibTeX mirror.
func (l *Library) BibPath() string { return filepath.Join(l.Dir, BibFile) }

// RebuildBibTeX regenerates the BibTeX mirror from the YAML entries, which
// stay authoritative. It returns the mirror's path.
func (l *Library) RebuildBibTeX() (string, error) {
	entries, err := l.Entries()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteBibTeX(&buf, entries); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}
	path := l.BibPath()
	return path, os.WriteFile(path, buf.Bytes(), 0o644)
}

// WriteBibTeX renders entries as BibTeX records in the order given.
func WriteBibTeX(w io.Writer, entries []schema.Entry) error {
	for _, e := range entries {
		if _, err := io.WriteString(w, EntryToBibTeX(e)); err != nil {
			return err
		}
	}
	return nil
}

// EntryToBibTeX converts an entry into one BibTeX record. The non-standard
// abstract and keywords fields carry the annotation; _id and _type allow a
// round trip back to YAML.
func EntryToBibTeX(e schema.Entry) string {
	var b bytes.Buffer
	w := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", k, escapeBib(v))
		}
	}
	fmt.Fprintf(&b, "@%s{%s,\n", bibType(e.Type), bibKey(e))
	w("author", names.BibTeX(e.APA7.Authors))
	w("title", e.APA7.Title)
	switch e.Type {
	case schema.TypeArticle:
		w("journal", sanitize.FirstNonEmpty(e.APA7.Journal, e.APA7.ContainerTitle))
		w("volume", e.APA7.Volume)
		w("number", e.APA7.Issue)
		w("pages", e.APA7.Pages)
	case schema.TypeBook, schema.TypeInBook, schema.TypeBooklet:
		w("publisher", e.APA7.Publisher)
		w("address", e.APA7.PublisherLocation)
		w("edition", e.APA7.Edition)
		w("isbn", e.APA7.ISBN)
	case schema.TypeInProceedings, schema.TypeInCollection:
		w("booktitle", e.APA7.ContainerTitle)
		w("publisher", e.APA7.Publisher)
		w("pages", e.APA7.Pages)
	case schema.TypeRFC:
		w("series", "Request for Comments")
		w("number", e.APA7.Number)
		w("howpublished", e.APA7.Publisher)
	case schema.TypeWebsite, schema.TypeOnline:
		w("howpublished", sanitize.FirstNonEmpty(e.APA7.Publisher, "Website"))
		if strings.TrimSpace(e.APA7.Accessed) != "" {
			w("note", "Accessed: "+e.APA7.Accessed)
		}
	default:
		w("howpublished", sanitize.FirstNonEmpty(e.APA7.Publisher, e.APA7.ContainerTitle))
		w("number", e.APA7.Number)
	}
	w("doi", e.APA7.DOI)
	w("url", e.APA7.URL)
	if e.APA7.Year != nil {
		w("year", fmt.Sprintf("%d", *e.APA7.Year))
	}
	w("date", e.APA7.Date)
	w("abstract", e.Annotation.Summary)
	w("keywords", strings.Join(e.Annotation.Keywords, ", "))
	w("_id", e.ID)
	w("_type", string(e.Type))
	out := strings.TrimRight(b.String(), ",\n")
	return out + "\n}\n\n"
}

func escapeBib(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "{", "\\{")
	s = strings.ReplaceAll(s, "}", "\\}")
	return strings.TrimSpace(s)
}

// bibType maps catalog types onto the standard BibTeX entry types.
func bibType(t schema.EntryType) string {
	switch t {
	case schema.TypeArticle, schema.TypeBook, schema.TypeBooklet, schema.TypeInBook,
		schema.TypeInCollection, schema.TypeInProceedings, schema.TypeManual,
		schema.TypeMastersThesis, schema.TypePhdThesis, schema.TypeProceedings,
		schema.TypeTechReport, schema.TypeUnpublished:
		return string(t)
	case schema.TypeReport, schema.TypeRFC:
		return "techreport"
	default:
		return "misc"
	}
}

// bibKey prefers the ID without dashes, which is unique and BibTeX-safe.
func bibKey(e schema.Entry) string {
	k := strings.ReplaceAll(strings.ToLower(e.ID), "-", "")
	if k == "" {
		k = strings.ReplaceAll(schema.Slugify(e.APA7.Title, e.APA7.Year), "-", "")
	}
	if k == "" {
		k = "entry"
	}
	return k
}
