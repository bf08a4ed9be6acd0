package library

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bibentry/src/internal/sanitize"
	"bibentry/src/internal/schema"
)

// Target is the library an import writes into.
type Target interface {
	Entries() ([]schema.Entry, error)
	Write(e schema.Entry) (string, error)
}

// Mirror is implemented by targets that keep a derived BibTeX file.
type Mirror interface {
	RebuildBibTeX() (string, error)
}

// CommitFunc records written files, e.g. (*gitutil.Repo).Commit.
type CommitFunc func(ctx context.Context, paths []string, message string) error

// Policy decides what happens when a candidate duplicates an existing entry.
type Policy string

const (
	// PolicyMerge fills the existing entry's empty fields from the candidate.
	PolicyMerge Policy = "merge"
	// PolicySkip leaves the library untouched.
	PolicySkip Policy = "skip"
	// PolicyKeepBoth inserts the candidate under a fresh ID.
	PolicyKeepBoth Policy = "keep-both"
)

// ParsePolicy accepts the config spellings of a policy; "" means merge.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyMerge, nil
	case PolicyMerge, PolicySkip, PolicyKeepBoth:
		return p, nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q", s)
}

// Action is what an import did to the library.
type Action string

const (
	Inserted Action = "inserted"
	Merged   Action = "merged"
	Skipped  Action = "skipped"
)

// Report describes one import.
type Report struct {
	Action Action
	// ID of the entry that now represents the candidate in the library.
	ID string
	// Path of the written file; empty when nothing was written.
	Path string
	// DuplicateOf is the existing entry's ID when a duplicate was detected.
	DuplicateOf string
	// MatchedOn names the duplicate key: doi, isbn or title.
	MatchedOn string
}

// Pipeline imports entries into a target with duplicate detection.
type Pipeline struct {
	Policy Policy
	// Mirror regenerates the target's BibTeX file after each write.
	Mirror bool
	Commit CommitFunc
	Logger *zap.Logger
}

// ImportWithDuplicateCheck merges e into target. Duplicates are detected by
// DOI, then ISBN, then type plus title and year; the first key that matches
// wins. Follow-up failures (mirror, commit) are returned with the report of
// the write that already happened.
func (p *Pipeline) ImportWithDuplicateCheck(ctx context.Context, target Target, e schema.Entry) (Report, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	existing, err := target.Entries()
	if err != nil {
		return Report{}, fmt.Errorf("read library: %w", err)
	}
	candidate := e.Clone()
	if strings.TrimSpace(candidate.ID) == "" {
		candidate.ID = schema.NewID()
	}

	var rep Report
	toWrite := candidate
	if dup, key, ok := FindDuplicate(existing, candidate); ok {
		rep.DuplicateOf = dup.ID
		rep.MatchedOn = key
		switch p.Policy {
		case PolicySkip:
			rep.Action = Skipped
			rep.ID = dup.ID
			log.Info("duplicate skipped",
				zap.String("entry_id", dup.ID),
				zap.String("matched_on", key),
			)
			return rep, nil
		case PolicyKeepBoth:
			rep.Action = Inserted
			if toWrite.ID == dup.ID {
				toWrite.ID = schema.NewID()
			}
		default:
			rep.Action = Merged
			toWrite = Merge(dup, candidate)
		}
	} else {
		rep.Action = Inserted
	}

	path, err := target.Write(toWrite)
	if err != nil {
		return Report{}, fmt.Errorf("write entry: %w", err)
	}
	rep.ID = toWrite.ID
	rep.Path = path
	log.Info("entry imported",
		zap.String("action", string(rep.Action)),
		zap.String("entry_id", rep.ID),
		zap.String("type", string(toWrite.Type)),
		zap.String("path", path),
		zap.String("duplicate_of", rep.DuplicateOf),
	)

	paths := []string{path}
	if m, ok := target.(Mirror); ok && p.Mirror {
		bib, err := m.RebuildBibTeX()
		if err != nil {
			return rep, fmt.Errorf("rebuild bibtex mirror: %w", err)
		}
		paths = append(paths, bib)
	}
	if p.Commit != nil {
		msg := fmt.Sprintf("bib: %s %s entry %s", rep.Action, toWrite.Type, rep.ID)
		if err := p.Commit(ctx, paths, msg); err != nil {
			return rep, fmt.Errorf("commit: %w", err)
		}
	}
	return rep, nil
}

// FindDuplicate returns the first existing entry equivalent to e and the key
// it matched on.
func FindDuplicate(existing []schema.Entry, e schema.Entry) (schema.Entry, string, bool) {
	if doi := doiKey(e.APA7.DOI); doi != "" {
		for _, x := range existing {
			if doiKey(x.APA7.DOI) == doi {
				return x, "doi", true
			}
		}
	}
	if isbn := sanitize.ISBN(e.APA7.ISBN); isbn != "" {
		for _, x := range existing {
			if sanitize.ISBN(x.APA7.ISBN) == isbn {
				return x, "isbn", true
			}
		}
	}
	if title := titleKey(e); title != "" {
		for _, x := range existing {
			if x.Type == e.Type && titleKey(x) == title {
				return x, "title", true
			}
		}
	}
	return schema.Entry{}, "", false
}

func doiKey(s string) string { return strings.ToLower(sanitize.DOI(s)) }

func titleKey(e schema.Entry) string {
	if strings.TrimSpace(e.APA7.Title) == "" {
		return ""
	}
	return schema.Slugify(e.APA7.Title, e.APA7.Year)
}

// Merge fills the empty fields of existing from candidate and unions the
// keywords. Identity (ID and type) stays with existing.
func Merge(existing, candidate schema.Entry) schema.Entry {
	out := existing.Clone()
	c := candidate.Clone()
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&out.APA7.Title, c.APA7.Title)
	fill(&out.APA7.Date, c.APA7.Date)
	fill(&out.APA7.ContainerTitle, c.APA7.ContainerTitle)
	fill(&out.APA7.Edition, c.APA7.Edition)
	fill(&out.APA7.Publisher, c.APA7.Publisher)
	fill(&out.APA7.PublisherLocation, c.APA7.PublisherLocation)
	fill(&out.APA7.Journal, c.APA7.Journal)
	fill(&out.APA7.Volume, c.APA7.Volume)
	fill(&out.APA7.Issue, c.APA7.Issue)
	fill(&out.APA7.Pages, c.APA7.Pages)
	fill(&out.APA7.DOI, c.APA7.DOI)
	fill(&out.APA7.ISBN, c.APA7.ISBN)
	fill(&out.APA7.Number, c.APA7.Number)
	fill(&out.APA7.URL, c.APA7.URL)
	fill(&out.APA7.Accessed, c.APA7.Accessed)
	fill(&out.Annotation.Summary, c.Annotation.Summary)
	if out.APA7.Year == nil {
		out.APA7.Year = c.APA7.Year
	}
	if len(out.APA7.Authors) == 0 {
		out.APA7.Authors = c.APA7.Authors
	}
	out.Annotation.Keywords = sanitize.CleanKeywords(append(out.Annotation.Keywords, c.Annotation.Keywords...))
	return out
}
