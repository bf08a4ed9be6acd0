package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSlugify(t *testing.T) {
	y := 2020
	cases := []struct {
		in   string
		year *int
		want string
	}{
		{"Hello, World!", nil, "hello-world"},
		{" Go  &  YAML ", &y, "go-yaml-2020"},
		{"  multiple---dashes__here ", nil, "multiple-dashes-here"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in, c.year), "Slugify(%q)", c.in)
	}
}

func TestValidate(t *testing.T) {
	e := Entry{ID: "id", Type: TypeWebsite, APA7: APA7{Title: "Title", URL: "https://x"}}
	require.Error(t, e.Validate(), "missing accessed with url present")

	e.APA7.Accessed = "2025-01-01"
	require.NoError(t, e.Validate())

	e.Type = "poem"
	require.Error(t, e.Validate())

	e = Entry{Type: TypeBook}
	require.Error(t, e.Validate(), "id required")
}

func TestNewEntryIsValidWithoutFields(t *testing.T) {
	e := New(TypeInProceedings)
	require.NotEmpty(t, e.ID)
	require.NoError(t, e.Validate())
	assert.NotEqual(t, e.ID, New(TypeInProceedings).ID)
}

func TestParseEntryType(t *testing.T) {
	got, err := ParseEntryType("  Article ")
	require.NoError(t, err)
	assert.Equal(t, TypeArticle, got)

	_, err = ParseEntryType("poem")
	require.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	y := 2001
	e := Entry{ID: "a", Type: TypeBook, APA7: APA7{Year: &y, Authors: Authors{{Family: "Doe"}}}, Annotation: Annotation{Keywords: []string{"k"}}}
	c := e.Clone()
	*c.APA7.Year = 1999
	c.APA7.Authors[0].Family = "Roe"
	c.Annotation.Keywords[0] = "z"
	assert.Equal(t, 2001, *e.APA7.Year)
	assert.Equal(t, "Doe", e.APA7.Authors[0].Family)
	assert.Equal(t, "k", e.Annotation.Keywords[0])
}

func TestAuthorsUnmarshalShapes(t *testing.T) {
	cases := map[string]int{
		"authors: ACME Corp\n":                             1,
		"authors: [Doe, '', Roe]\n":                        2,
		"authors: {family: Doe, given: J.}\n":              1,
		"authors:\n  - {family: Doe}\n  - {family: ''}\n": 1,
	}
	for doc, want := range cases {
		var v struct {
			Authors Authors `yaml:"authors"`
		}
		require.NoError(t, yaml.Unmarshal([]byte(doc), &v), doc)
		assert.Len(t, v.Authors, want, doc)
	}
}
