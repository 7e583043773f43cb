// Package citations derives short citation keys for stored articles so that
// multi-document output can be traced back to its sources.
package citations

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Epistemic-Technology/article-summarizer/models"
)

const unknownKey = "unknown"

// KeySet hands out citekeys that are unique within one response.
type KeySet map[string]bool

// Assign returns a pandoc-style key for md ("smith2020", "smithJones2021",
// "smithEtAl2020"), adding a letter suffix when the key is already taken.
func (ks KeySet) Assign(md models.ItemMetadata) string {
	base := Citekey(md)
	key := base
	for i := 0; ks[key]; i++ {
		if i < 26 {
			key = base + string(rune('a'+i))
		} else {
			key = base + "z" + strconv.Itoa(i-25)
		}
	}
	ks[key] = true
	return key
}

// Citekey builds the unsuffixed key from authors and year.
func Citekey(md models.ItemMetadata) string {
	key := authorPart(md.Authors)
	if md.PublicationYear > 0 {
		key += strconv.Itoa(md.PublicationYear)
	}
	return sanitize(key)
}

// authorPart uses one surname, two joined surnames, or the first surname plus EtAl.
func authorPart(authors []string) string {
	var names []string
	for _, a := range authors {
		if n := surname(a); n != "" {
			names = append(names, n)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + capitalize(names[1])
	default:
		return names[0] + "EtAl"
	}
}

// surname handles "Smith, John", "John Smith" and "von Neumann, John".
func surname(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return ""
	}

	var last string
	if before, _, found := strings.Cut(author, ","); found {
		last = strings.TrimSpace(before)
	} else {
		parts := strings.Fields(author)
		last = parts[len(parts)-1]
	}

	parts := strings.Fields(last)
	result := strings.ToLower(parts[0])
	for _, p := range parts[1:] {
		result += capitalize(strings.ToLower(p))
	}
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// sanitize keeps letters, digits and underscores; keys may not start with a digit.
func sanitize(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return unknownKey
	}
	if unicode.IsDigit(rune(s[0])) {
		s = "ref" + s
	}
	return s
}
