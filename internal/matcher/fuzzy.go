// file: internal/matcher/fuzzy.go
// version: 2.1.0
// guid: 5b0e9d3c-2a71-4f68-9c1e-7d4a3b8f6e21

package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// ResolutionThreshold is the minimum similarity for accepting a resolved
	// record as the book that was asked for.
	ResolutionThreshold = 0.70

	// DedupThreshold is the default similarity at which two generated titles
	// are collapsed into one.
	DedupThreshold = 0.6

	// nameThreshold is how close two name tokens must be to count as the
	// same name, so "Tolkein" still matches "Tolkien".
	nameThreshold = 0.7
)

var leadingArticles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// Normalize lowercases s, folds diacritics, drops bracketed qualifiers such
// as "(40th Anniversary)", strips punctuation and removes a leading article.
func Normalize(s string) string {
	s = strings.ToLower(foldDiacritics(s))
	if stripped := stripBracketed(s); strings.TrimSpace(stripped) != "" {
		s = stripped
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\'' || r == '’':
			// "Potter's" -> "potters"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	if len(words) > 1 {
		if _, ok := leadingArticles[words[0]]; ok {
			words = words[1:]
		}
	}
	return strings.Join(words, " ")
}

// Similarity returns the normalized edit-distance similarity of a and b in
// [0,1]. Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	return ratio(Normalize(a), Normalize(b))
}

// Matches reports whether a and b are at least threshold similar.
func Matches(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// AuthorSimilarity compares two author names, treating "Herbert, Frank" and
// "Frank Herbert" as the same name.
func AuthorSimilarity(a, b string) float64 {
	return ratio(Normalize(reorderName(a)), Normalize(reorderName(b)))
}

// TitleAuthorSimilarity scores a returned (title, author) pair against the
// requested one. Title carries two thirds of the weight. When either side
// has no author only the title is compared.
func TitleAuthorSimilarity(wantTitle, wantAuthor, gotTitle, gotAuthor string) float64 {
	title := Similarity(wantTitle, gotTitle)
	if strings.TrimSpace(wantAuthor) == "" || strings.TrimSpace(gotAuthor) == "" {
		return title
	}
	author := AuthorSimilarity(wantAuthor, gotAuthor)
	return (2*title + author) / 3
}

// SameAuthor reports whether two author names can name the same person.
// Surnames must match, and every given name on the shorter side must match a
// given name on the other side, in order, either in full or as an initial.
// "J. R. R. Tolkien" matches "John Ronald Reuel Tolkien"; "Brian Herbert"
// does not match "Frank Herbert".
func SameAuthor(a, b string) bool {
	ta := strings.Fields(Normalize(reorderName(a)))
	tb := strings.Fields(Normalize(reorderName(b)))
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	if ratio(ta[len(ta)-1], tb[len(tb)-1]) < nameThreshold {
		return false
	}
	ga, gb := ta[:len(ta)-1], tb[:len(tb)-1]
	if len(ga) > len(gb) {
		ga, gb = gb, ga
	}
	j := 0
	for _, g := range ga {
		for j < len(gb) && !sameGivenName(g, gb[j]) {
			j++
		}
		if j == len(gb) {
			return false
		}
		j++
	}
	return true
}

func sameGivenName(a, b string) bool {
	if utf8.RuneCountInString(a) == 1 || utf8.RuneCountInString(b) == 1 {
		ra, _ := utf8.DecodeRuneInString(a)
		rb, _ := utf8.DecodeRuneInString(b)
		return ra == rb
	}
	return ratio(a, b) >= nameThreshold
}

// Dedup drops every item whose key is at least threshold similar to the key
// of an item kept before it. Input order decides which item survives.
func Dedup[T any](items []T, key func(T) string, threshold float64) []T {
	kept := make([]T, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		k := Normalize(key(item))
		duplicate := false
		for _, existing := range keys {
			if ratio(k, existing) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, item)
		keys = append(keys, k)
	}
	return kept
}

// ratio compares two already-normalized strings.
func ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	dist := fuzzy.LevenshteinDistance(a, b)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func stripBracketed(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			if depth > 0 {
				depth--
				continue
			}
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// reorderName turns "Last, First" into "First Last". Anything with more than
// one comma is left alone since it is probably a list of authors.
func reorderName(name string) string {
	parts := strings.Split(name, ",")
	if len(parts) != 2 {
		return name
	}
	last := strings.TrimSpace(parts[0])
	first := strings.TrimSpace(parts[1])
	if last == "" || first == "" {
		return name
	}
	return first + " " + last
}
