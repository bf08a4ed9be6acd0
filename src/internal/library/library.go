// Package library stores catalog entries as one YAML file each and imports new
// entries with duplicate detection.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bibentry/src/internal/schema"
)

const (
	CitationsDir = "citations"
	BibFile      = "library.bib"
)

// Library is a directory of entry files: <Dir>/citations/<segment>/<id>.yaml.
type Library struct {
	Dir string
}

// Open returns the library rooted at dir. The directory is created lazily on
// the first write.
func Open(dir string) *Library { return &Library{Dir: dir} }

// Segment maps an entry type to its subdirectory under citations. Types
// without a dedicated directory share "citation".
func Segment(t schema.EntryType) string {
	switch t {
	case schema.TypeArticle:
		return "article"
	case schema.TypeBook, schema.TypeInBook, schema.TypeBooklet:
		return "books"
	case schema.TypeInProceedings, schema.TypeProceedings, schema.TypeInCollection:
		return "proceedings"
	case schema.TypeOnline, schema.TypeWebsite:
		return "site"
	case schema.TypeRFC:
		return "rfc"
	case schema.TypeReport, schema.TypeTechReport:
		return "report"
	case schema.TypeThesis, schema.TypeMastersThesis, schema.TypePhdThesis:
		return "thesis"
	default:
		return "citation"
	}
}

// Path returns the file an entry is stored in.
func (l *Library) Path(e schema.Entry) string {
	return filepath.Join(l.Dir, CitationsDir, Segment(e.Type), e.ID+".yaml")
}

// Write validates e and writes it to its YAML file, replacing any previous
// version with the same ID. An entry without an ID gets a fresh one; an ID
// that is not a plain file name is rejected.
func (l *Library) Write(e schema.Entry) (string, error) {
	if strings.TrimSpace(e.ID) == "" {
		e.ID = schema.NewID()
	}
	if !safeID(e.ID) {
		return "", fmt.Errorf("unsafe entry id %q", e.ID)
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	path := l.Path(e)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	buf, err := yaml.Marshal(e)
	if err != nil {
		return "", err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

func safeID(id string) bool {
	return id != "." && !strings.Contains(id, "..") && !strings.ContainsAny(id, `/\`) && filepath.Base(id) == id
}

// Entries loads and validates every entry, ordered by type, title and ID.
func (l *Library) Entries() ([]schema.Entry, error) {
	root := filepath.Join(l.Dir, CitationsDir)
	var entries []schema.Entry
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var e schema.Entry
		if err := yaml.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("invalid entry in %s: %w", path, err)
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEntries(entries)
	return entries, nil
}

// sortEntries gives the deterministic order used for listings and the
// BibTeX mirror: by type, then title, then ID.
func sortEntries(entries []schema.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		ei, ej := entries[i], entries[j]
		if ei.Type != ej.Type {
			return ei.Type < ej.Type
		}
		ti := strings.ToLower(strings.TrimSpace(ei.APA7.Title))
		tj := strings.ToLower(strings.TrimSpace(ej.APA7.Title))
		if ti != tj {
			return ti < tj
		}
		return ei.ID < ej.ID
	})
}
