package schema

import (
	"fmt"
	"strings"
)

// EntryType identifies the kind of a catalog entry. Descriptions and layout
// hints for each type live outside this package.
type EntryType string

const (
	TypeArticle       EntryType = "article"
	TypeBook          EntryType = "book"
	TypeBooklet       EntryType = "booklet"
	TypeInBook        EntryType = "inbook"
	TypeInCollection  EntryType = "incollection"
	TypeInProceedings EntryType = "inproceedings"
	TypeManual        EntryType = "manual"
	TypeMastersThesis EntryType = "mastersthesis"
	TypeMisc          EntryType = "misc"
	TypeOnline        EntryType = "online"
	TypePhdThesis     EntryType = "phdthesis"
	TypeProceedings   EntryType = "proceedings"
	TypeReport        EntryType = "report"
	TypeTechReport    EntryType = "techreport"
	TypeThesis        EntryType = "thesis"
	TypeUnpublished   EntryType = "unpublished"
	TypeDataset       EntryType = "dataset"
	TypeSoftware      EntryType = "software"
	TypeRFC           EntryType = "rfc"
	TypeWebsite       EntryType = "website"
)

// Recommended lists the types offered first when choosing a type by hand.
var Recommended = []EntryType{
	TypeArticle, TypeBook, TypeInProceedings, TypeInCollection, TypeMisc, TypeOnline,
}

var known = map[EntryType]bool{
	TypeArticle: true, TypeBook: true, TypeBooklet: true, TypeInBook: true,
	TypeInCollection: true, TypeInProceedings: true, TypeManual: true,
	TypeMastersThesis: true, TypeMisc: true, TypeOnline: true, TypePhdThesis: true,
	TypeProceedings: true, TypeReport: true, TypeTechReport: true, TypeThesis: true,
	TypeUnpublished: true, TypeDataset: true, TypeSoftware: true, TypeRFC: true,
	TypeWebsite: true,
}

// Known reports whether t is one of the catalog's entry types.
func (t EntryType) Known() bool { return known[t] }

func (t EntryType) String() string { return string(t) }

// ParseEntryType normalizes s (case and surrounding space) and checks it
// against the catalog.
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Known() {
		return "", fmt.Errorf("unknown entry type %q", s)
	}
	return t, nil
}

var ordered = []EntryType{
	TypeArticle, TypeBook, TypeBooklet, TypeInBook, TypeInCollection,
	TypeInProceedings, TypeManual, TypeMastersThesis, TypeMisc, TypeOnline,
	TypePhdThesis, TypeProceedings, TypeReport, TypeTechReport, TypeThesis,
	TypeUnpublished, TypeDataset, TypeSoftware, TypeRFC, TypeWebsite,
}

// All returns every catalog type in display order.
func All() []EntryType { return append([]EntryType(nil), ordered...) }
