package search

import (
	"sort"
	"strings"
)

// SortByTitleMatchFirst returns results reordered so documents whose title
// contains rawQuery (case-insensitive) come first. Each group is sorted by
// title using byte order. Scores are ignored. The input is not modified.
func SortByTitleMatchFirst(results []*RankedResult, rawQuery string) []*RankedResult {
	return titleMatchFirst(results, rawQuery, func(r *RankedResult) string {
		if r == nil || r.Document == nil {
			return ""
		}
		return r.Document.Title
	})
}

// SortTitlesByMatchFirst applies the title-match-first ordering to bare titles.
func SortTitlesByMatchFirst(titles []string, rawQuery string) []string {
	return titleMatchFirst(titles, rawQuery, func(s string) string { return s })
}

func titleMatchFirst[T any](items []T, rawQuery string, title func(T) string) []T {
	needle := strings.ToLower(rawQuery)

	matched := make([]T, 0, len(items))
	rest := make([]T, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(title(it)), needle) {
			matched = append(matched, it)
		} else {
			rest = append(rest, it)
		}
	}

	byTitle := func(group []T) {
		sort.SliceStable(group, func(i, j int) bool {
			return title(group[i]) < title(group[j])
		})
	}
	byTitle(matched)
	byTitle(rest)

	return append(matched, rest...)
}
