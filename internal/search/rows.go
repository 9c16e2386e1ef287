package search

import (
	"github.com/hession/storesearch/internal/itunes"
)

// RowKind says how a row is rendered.
type RowKind int

const (
	RowLoading RowKind = iota
	RowNothingFound
	RowResult
)

// Row is one line of the result list.
type Row struct {
	Kind   RowKind
	Index  int
	Result itunes.SearchResult
}

// Rows maps a state to the rows a list view shows:
//
//	Idle, NetworkError  no rows
//	Loading             one busy row
//	Empty               one "nothing found" row
//	Results             one row per result, in sorted order
func Rows(s State) []Row {
	switch s.Kind {
	case Loading:
		return []Row{{Kind: RowLoading}}
	case Empty:
		return []Row{{Kind: RowNothingFound}}
	case Results:
		rows := make([]Row, 0, s.ResultSet.Len())
		for i, r := range s.ResultSet.Results {
			rows = append(rows, Row{Kind: RowResult, Index: i, Result: r})
		}
		return rows
	default:
		return nil
	}
}

// RowCount returns len(Rows(s)) without building the rows.
func RowCount(s State) int {
	switch s.Kind {
	case Loading, Empty:
		return 1
	case Results:
		return s.ResultSet.Len()
	default:
		return 0
	}
}

// Selectable reports whether row i can be opened in a detail view.
func Selectable(s State, i int) bool {
	return s.Kind == Results && i >= 0 && i < s.ResultSet.Len()
}
