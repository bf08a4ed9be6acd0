package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Entry represents a single catalog entry stored on disk as YAML.
type Entry struct {
	ID         string     `yaml:"id" json:"id"`
	Type       EntryType  `yaml:"type" json:"type"`
	APA7       APA7       `yaml:"apa7" json:"apa7"`
	Annotation Annotation `yaml:"annotation" json:"annotation"`
}

// APA7 holds bibliographic fields.
type APA7 struct {
	Authors           Authors `yaml:"authors,omitempty" json:"authors,omitempty"`
	Year              *int    `yaml:"year,omitempty" json:"year,omitempty"`
	Date              string  `yaml:"date,omitempty" json:"date,omitempty"`
	Title             string  `yaml:"title,omitempty" json:"title,omitempty"`
	ContainerTitle    string  `yaml:"container_title,omitempty" json:"container_title,omitempty"`
	Edition           string  `yaml:"edition,omitempty" json:"edition,omitempty"`
	Publisher         string  `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	PublisherLocation string  `yaml:"publisher_location,omitempty" json:"publisher_location,omitempty"`
	Journal           string  `yaml:"journal,omitempty" json:"journal,omitempty"`
	Volume            string  `yaml:"volume,omitempty" json:"volume,omitempty"`
	Issue             string  `yaml:"issue,omitempty" json:"issue,omitempty"`
	Pages             string  `yaml:"pages,omitempty" json:"pages,omitempty"`
	DOI               string  `yaml:"doi,omitempty" json:"doi,omitempty"`
	ISBN              string  `yaml:"isbn,omitempty" json:"isbn,omitempty"`
	Number            string  `yaml:"number,omitempty" json:"number,omitempty"`
	URL               string  `yaml:"url,omitempty" json:"url,omitempty"`
	Accessed          string  `yaml:"accessed,omitempty" json:"accessed,omitempty"`
}

type Author struct {
	Family string `yaml:"family" json:"family"`
	Given  string `yaml:"given,omitempty" json:"given,omitempty"`
}

type Annotation struct {
	Summary  string   `yaml:"summary,omitempty" json:"summary,omitempty"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Authors is a slice of Author that can unmarshal from multiple YAML shapes:
// - a single string (treated as a corporate or full-name author; stored in Family)
// - a sequence of strings
// - a mapping (single Author object)
// - a sequence of Author mappings
type Authors []Author

func (a *Authors) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch value.Kind {
	case yaml.ScalarNode:
		s := strings.TrimSpace(value.Value)
		if s == "" || s == "null" {
			*a = nil
			return nil
		}
		*a = Authors{{Family: s}}
		return nil
	case yaml.SequenceNode:
		var out Authors
		for _, n := range value.Content {
			switch n.Kind {
			case yaml.ScalarNode:
				if s := strings.TrimSpace(n.Value); s != "" {
					out = append(out, Author{Family: s})
				}
			case yaml.MappingNode:
				var au Author
				if err := n.Decode(&au); err != nil {
					return err
				}
				if au.empty() {
					continue
				}
				out = append(out, au)
			}
		}
		*a = out
		return nil
	case yaml.MappingNode:
		var au Author
		if err := value.Decode(&au); err != nil {
			return err
		}
		if au.empty() {
			*a = nil
			return nil
		}
		*a = Authors{au}
		return nil
	default:
		// Unknown shape; leave nil rather than erroring
		*a = nil
		return nil
	}
}

func (au Author) empty() bool {
	return strings.TrimSpace(au.Family) == "" && strings.TrimSpace(au.Given) == ""
}

// New returns an empty entry of the given type with a fresh ID.
func New(typ EntryType) Entry {
	return Entry{ID: NewID(), Type: typ}
}

// NewID returns a random, file-name safe entry ID.
func NewID() string { return uuid.NewString() }

// Validate checks the rules every stored entry must satisfy. Entries created by
// type selection are allowed to be otherwise empty.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("id is required")
	}
	if !e.Type.Known() {
		return fmt.Errorf("invalid type: %s", e.Type)
	}
	if strings.TrimSpace(e.APA7.URL) != "" && strings.TrimSpace(e.APA7.Accessed) == "" {
		return errors.New("apa7.accessed is required when apa7.url is present")
	}
	return nil
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	if e.APA7.Year != nil {
		y := *e.APA7.Year
		out.APA7.Year = &y
	}
	if e.APA7.Authors != nil {
		out.APA7.Authors = append(Authors(nil), e.APA7.Authors...)
	}
	if e.Annotation.Keywords != nil {
		out.Annotation.Keywords = append([]string(nil), e.Annotation.Keywords...)
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
var dashCollapse = regexp.MustCompile(`-+`)

// Slugify generates an id-friendly slug from title and optional year.
func Slugify(title string, year *int) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = nonAlnum.ReplaceAllString(t, "-")
	t = dashCollapse.ReplaceAllString(t, "-")
	t = strings.Trim(t, "-")
	if year != nil {
		return fmt.Sprintf("%s-%d", t, *year)
	}
	return t
}
