// Package prefs persists the entry-creation workflow's preferences between
// runs.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"bibentry/src/internal/schema"
)

const (
	DefaultApproach        = "create-entry"
	DefaultLastInstantType = schema.TypeArticle
)

// Preferences is the flat record saved between runs.
type Preferences struct {
	Approach         string
	LastInstantType  schema.EntryType
	IDLookupGuessing bool
	// LastFetcher is only consulted while guessing is off.
	LastFetcher string
}

// Defaults returns the preferences of a first run.
func Defaults() Preferences {
	return Preferences{
		Approach:         DefaultApproach,
		LastInstantType:  DefaultLastInstantType,
		IDLookupGuessing: true,
	}
}

// Store loads and saves preferences.
type Store interface {
	Load() (Preferences, error)
	Save(p Preferences) error
}

// record is the on-disk shape; a missing guessing flag means the default.
type record struct {
	Approach         string `yaml:"approach,omitempty"`
	LastInstantType  string `yaml:"last_instant_type,omitempty"`
	IDLookupGuessing *bool  `yaml:"id_lookup_guessing,omitempty"`
	LastFetcher      string `yaml:"last_fetcher,omitempty"`
}

func (r record) preferences() Preferences {
	p := Defaults()
	if s := strings.TrimSpace(r.Approach); s != "" {
		p.Approach = s
	}
	if t, err := schema.ParseEntryType(r.LastInstantType); err == nil {
		p.LastInstantType = t
	}
	if r.IDLookupGuessing != nil {
		p.IDLookupGuessing = *r.IDLookupGuessing
	}
	p.LastFetcher = strings.TrimSpace(r.LastFetcher)
	return p
}

func toRecord(p Preferences) record {
	g := p.IDLookupGuessing
	return record{
		Approach:         p.Approach,
		LastInstantType:  string(p.LastInstantType),
		IDLookupGuessing: &g,
		LastFetcher:      p.LastFetcher,
	}
}

// FileStore keeps preferences in a YAML file. Every access holds an exclusive
// lock on <Path>.lock so concurrent bib processes do not interleave writes.
type FileStore struct {
	Path string
	lock *flock.Flock
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, lock: flock.New(path + ".lock")}
}

// Load reads the file. A missing file yields the defaults. A corrupt file
// also yields the defaults, together with the parse error.
func (s *FileStore) Load() (Preferences, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return Defaults(), fmt.Errorf("create state dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return Defaults(), fmt.Errorf("lock preferences: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), fmt.Errorf("read preferences: %w", err)
	}
	var r record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Defaults(), fmt.Errorf("parse preferences %s: %w", s.Path, err)
	}
	return r.preferences(), nil
}

// Save replaces the file atomically.
func (s *FileStore) Save(p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock preferences: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := yaml.Marshal(toRecord(p))
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// MemoryStore keeps preferences in memory and counts saves.
type MemoryStore struct {
	mu    sync.Mutex
	prefs *Preferences
	saves int
	// Err, when set, is returned by Save.
	Err error
}

// NewMemoryStore returns a store seeded with p, or empty (defaults) when p is nil.
func NewMemoryStore(p *Preferences) *MemoryStore {
	s := &MemoryStore{}
	if p != nil {
		cp := *p
		s.prefs = &cp
	}
	return s
}

func (s *MemoryStore) Load() (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs == nil {
		return Defaults(), nil
	}
	return *s.prefs, nil
}

func (s *MemoryStore) Save(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.prefs = &p
	s.saves++
	return nil
}

// Saves reports how many saves succeeded.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
