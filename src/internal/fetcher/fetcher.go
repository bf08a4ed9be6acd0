// Package fetcher defines identifier-based fetchers, the registry that lists
// them for a session, and the classification of fetch failures.
package fetcher

import (
	"context"
	"strings"

	"bibentry/src/internal/schema"
)

// Fetcher retrieves a catalog entry by identifier. A nil entry with a nil
// error means the search ran but produced nothing usable.
type Fetcher interface {
	Name() string
	SearchByID(ctx context.Context, id string) (*schema.Entry, error)
}

// Recognizer is implemented by fetchers that can tell from an identifier's
// shape whether it is theirs. Only recognizers take part in guessing.
type Recognizer interface {
	Recognizes(id string) bool
}

// Registry is an ordered, read-only set of fetchers.
type Registry struct {
	fetchers []Fetcher
}

// NewRegistry keeps fs in the given order. Nil fetchers and repeated names
// are dropped; the first registration of a name wins.
func NewRegistry(fs ...Fetcher) *Registry {
	seen := map[string]bool{}
	r := &Registry{}
	for _, f := range fs {
		if f == nil || seen[f.Name()] {
			continue
		}
		seen[f.Name()] = true
		r.fetchers = append(r.fetchers, f)
	}
	return r
}

// List returns a copy of the registered fetchers in registration order.
func (r *Registry) List() []Fetcher {
	if r == nil {
		return nil
	}
	return append([]Fetcher(nil), r.fetchers...)
}

// ByName finds a fetcher by exact name.
func (r *Registry) ByName(name string) (Fetcher, bool) {
	return Find(r.List(), name)
}

// Guess returns the first fetcher that recognizes id.
func (r *Registry) Guess(id string) (Fetcher, bool) {
	return Guess(r.List(), id)
}

// Find looks a fetcher up by exact name in fs.
func Find(fs []Fetcher, name string) (Fetcher, bool) {
	for _, f := range fs {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

// Guess returns the first fetcher in fs whose shape check accepts id.
func Guess(fs []Fetcher, id string) (Fetcher, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	for _, f := range fs {
		if rc, ok := f.(Recognizer); ok && rc.Recognizes(id) {
			return f, true
		}
	}
	return nil, false
}
