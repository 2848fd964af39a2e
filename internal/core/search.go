package core

import (
	"strings"
	"time"
)

// SearchType selects how a free-text search term is encoded for the backend.
type SearchType string

const (
	SearchFullName  SearchType = "full-name"
	SearchFirstName SearchType = "first-name"
	SearchLastName  SearchType = "last-name"
	SearchDate      SearchType = "date"
	SearchDateRange SearchType = "date-range"
	SearchText      SearchType = "text"
)

// FormatSearchTerm builds the term sent to the backend search endpoint.
//
//	FormatSearchTerm(SearchFullName, "Juan Carlos", "Perez Diaz") -> "juan+carlos-perez+diaz"
//	FormatSearchTerm(SearchFirstName, "Juan Carlos")              -> "juan+carlos"
//	FormatSearchTerm(SearchDate, "2024-03-07")                    -> "2024-03-07"
//	FormatSearchTerm(SearchDateRange, "2024-03-01", "2024-03-31") -> "2024-03-01+2024-03-31"
func FormatSearchTerm(t SearchType, parts ...string) string {
	switch t {
	case SearchFullName:
		first, last := "", ""
		if len(parts) > 0 {
			first = joinWords(parts[0])
		}
		if len(parts) > 1 {
			last = joinWords(parts[1])
		}
		if first == "" && last == "" {
			return ""
		}
		return first + "-" + last
	case SearchFirstName, SearchLastName:
		if len(parts) == 0 {
			return ""
		}
		return joinWords(parts[0])
	case SearchDate:
		if len(parts) == 0 {
			return ""
		}
		return normalizeDate(parts[0])
	case SearchDateRange:
		var dates []string
		for _, p := range parts {
			if d := normalizeDate(p); d != "" {
				dates = append(dates, d)
			}
		}
		return strings.Join(dates, "+")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func joinWords(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "+"))
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}

// MatchesTerm applies a formatted search term to a record the way the
// remote backend does: "first+names-last+names" against member names,
// otherwise the "+"-joined words against every text attribute.
func MatchesTerm(r Record, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if r.Kind.DisplayField() == "fullName" {
		if first, last, ok := strings.Cut(term, "-"); ok {
			return containsWords(r.Field("firstNames"), first) && containsWords(r.Field("lastNames"), last)
		}
	}
	needle := strings.ReplaceAll(term, "+", " ")
	for key := range r.Data {
		if strings.Contains(strings.ToLower(r.Field(key)), needle) {
			return true
		}
	}
	return false
}

func containsWords(haystack, words string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ReplaceAll(words, "+", " "))
}
