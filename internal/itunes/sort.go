package itunes

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByName returns a copy of results ordered by Name using a
// case-insensitive, numeric-aware collation for the given locale. Items
// that compare equal keep their original relative order.
func SortByName(results []SearchResult, tag language.Tag) []SearchResult {
	sorted := slices.Clone(results)
	if len(sorted) < 2 {
		return sorted
	}

	// Collators are not safe for concurrent use; build one per call.
	col := collate.New(tag, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(sorted, func(a, b SearchResult) int {
		return col.CompareString(a.Name(), b.Name())
	})
	return sorted
}

// Sorted returns rs with its results ordered by SortByName.
func (rs ResultSet) Sorted(tag language.Tag) ResultSet {
	return ResultSet{
		Count:   rs.Count,
		Results: SortByName(rs.Results, tag),
	}
}
