// file: internal/matcher/series.go
// version: 2.0.0
// guid: 0f7c6a1e-93d4-4b25-8e0a-c61f2d9b5a47

package matcher

import (
	"regexp"
	"strconv"
	"strings"
)

// SeriesMatch is a series reference found in a book title.
type SeriesMatch struct {
	Series   string
	Position float64
	Title    string
}

// Leading forms put the series first: "Series Book 1: Title".
var leadingSeriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+Book\s+(\d+(?:\.\d+)?)(?:\s*:|\s+-)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+Vol(?:\.|ume)?\s*(\d+(?:\.\d+)?)(?:\s*:|\s+-)\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+#(\d+(?:\.\d+)?)(?:\s*:|\s+-)\s+(.+)$`),
}

// Trailing form puts it in brackets after the title: "Title (Series #1)",
// "Title (Series, Book 1)".
var trailingSeriesPattern = regexp.MustCompile(
	`(?i)^(.+?)\s*[\(\[]\s*(.+?),?\s*(?:#|Book\s+|Vol(?:\.|ume)?\s*)(\d+(?:\.\d+)?)\s*[\)\]]$`)

// seriesWords are common words indicating a series
var seriesWords = []string{"trilogy", "series", "saga", "chronicles", "sequence", "cycle"}

// ParseSeries extracts a series name and position from a title.
func ParseSeries(title string) (SeriesMatch, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return SeriesMatch{}, false
	}

	if m := trailingSeriesPattern.FindStringSubmatch(title); m != nil {
		return newSeriesMatch(m[2], m[3], m[1])
	}
	for _, pattern := range leadingSeriesPatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return newSeriesMatch(m[1], m[2], m[3])
		}
	}

	// "The Foundation Trilogy: Foundation" names the series without a number.
	if head, rest, ok := strings.Cut(title, ": "); ok && LooksLikeSeries(head) {
		return SeriesMatch{Series: strings.TrimSpace(head), Title: strings.TrimSpace(rest)}, true
	}
	return SeriesMatch{}, false
}

// LooksLikeSeries reports whether name contains a word that usually marks a
// series ("trilogy", "saga", ...).
func LooksLikeSeries(name string) bool {
	lower := strings.ToLower(name)
	for _, word := range seriesWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func newSeriesMatch(series, position, title string) (SeriesMatch, bool) {
	series = strings.TrimSpace(series)
	if series == "" {
		return SeriesMatch{}, false
	}
	pos, err := strconv.ParseFloat(position, 64)
	if err != nil {
		return SeriesMatch{}, false
	}
	return SeriesMatch{Series: series, Position: pos, Title: strings.TrimSpace(title)}, true
}
