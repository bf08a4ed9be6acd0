package session

import "strings"

// Approach is a strategy for producing a new entry.
type Approach string

const (
	CreateEntry        Approach = "create-entry"
	LookupIdentifier   Approach = "lookup-identifier"
	InterpretCitations Approach = "interpret-citations"
	SpecifyFormat      Approach = "specify-format"
)

// Approaches lists every approach in presentation order.
var Approaches = []Approach{CreateEntry, LookupIdentifier, InterpretCitations, SpecifyFormat}

func (a Approach) String() string { return string(a) }

// Valid reports whether a is one of Approaches.
func (a Approach) Valid() bool {
	for _, x := range Approaches {
		if a == x {
			return true
		}
	}
	return false
}

// ParseApproach accepts the persisted spellings plus the short forms the CLI
// offers (type, lookup, interpret, format).
func ParseApproach(s string) (Approach, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case "type", "create":
		return CreateEntry, nil
	case "lookup", "id":
		return LookupIdentifier, nil
	case "interpret", "citations":
		return InterpretCitations, nil
	case "format", "bibtex":
		return SpecifyFormat, nil
	default:
		if a := Approach(k); a.Valid() {
			return a, nil
		}
	}
	return "", invalid(ErrUnknownApproach, s)
}

// Action is the presentation hint for the single confirm control.
type Action struct {
	Label   string
	Enabled bool
}
