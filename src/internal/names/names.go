package names

import (
	"strings"

	"bibentry/src/internal/schema"
)

// Initials converts a given name string into spaced initials: "Jane Q" -> "J. Q.".
// Hyphenated names keep the hyphen: "Jean-Luc" -> "J.-L.".
func Initials(given string) string {
	var out []string
	for _, w := range strings.Fields(given) {
		var parts []string
		for _, p := range strings.Split(w, "-") {
			r := []rune(strings.TrimSpace(p))
			if len(r) == 0 {
				continue
			}
			parts = append(parts, strings.ToUpper(string(r[0]))+".")
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, "-"))
		}
	}
	return strings.Join(out, " ")
}

// Split splits a full name into (family, givenInitials). It accepts either
// "Family, Given Names" or "Given Names Family".
func Split(name string) (family, givenInitials string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i]), Initials(name[i+1:])
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[len(parts)-1], Initials(strings.Join(parts[:len(parts)-1], " "))
}

// Author builds a schema.Author from a free-form name.
func Author(name string) schema.Author {
	fam, giv := Split(name)
	return schema.Author{Family: fam, Given: giv}
}

// BibTeX joins authors in BibTeX form: "Family, Given and Family, Given".
func BibTeX(authors schema.Authors) string {
	var out []string
	for _, a := range authors {
		fam := strings.TrimSpace(a.Family)
		giv := strings.TrimSpace(a.Given)
		switch {
		case fam != "" && giv != "":
			out = append(out, fam+", "+giv)
		case fam != "":
			out = append(out, fam)
		case giv != "":
			out = append(out, giv)
		}
	}
	return strings.Join(out, " and ")
}
