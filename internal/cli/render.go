package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/language"

	"github.com/hession/storesearch/internal/history"
	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/search"
)

const maxNameWidth = 70

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	dimColor   = color.New(color.FgHiBlack)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
)

// formatRow renders one list row. Result rows take two lines: the name and
// the artist label.
func formatRow(row search.Row) string {
	switch row.Kind {
	case search.RowLoading:
		return dimColor.Sprint("Loading...")
	case search.RowNothingFound:
		return warnColor.Sprint("(Nothing found)")
	default:
		return fmt.Sprintf("%3d. %s\n     %s",
			row.Index+1,
			truncateForDisplay(row.Result.Name(), maxNameWidth),
			dimColor.Sprint(itunes.ArtistLabel(row.Result)),
		)
	}
}

// RenderRows writes the list view for s.
func RenderRows(w io.Writer, s search.State) {
	for _, row := range search.Rows(s) {
		fmt.Fprintln(w, formatRow(row))
	}
}

// renderDetail writes the detail view of r.
func renderDetail(w io.Writer, r itunes.SearchResult, tag language.Tag) {
	fmt.Fprintln(w, titleColor.Sprint(r.Name()))
	fmt.Fprintf(w, "  Artist: %s\n", itunes.ArtistOrUnknown(r))
	fmt.Fprintf(w, "  Type:   %s\n", r.DisplayType())
	fmt.Fprintf(w, "  Genre:  %s\n", r.Genre())
	fmt.Fprintf(w, "  Price:  %s\n", okColor.Sprint(itunes.FormatPrice(r.Price(), r.Currency, tag)))
	if u := r.ViewURL(); u != "" {
		fmt.Fprintf(w, "  Store:  %s\n", u)
	}
}

// renderHistory writes history entries, newest first.
func renderHistory(w io.Writer, entries []*history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, dimColor.Sprint("No searches yet"))
		return
	}
	for _, e := range entries {
		outcome := e.Outcome
		if e.Outcome == search.Results.String() {
			outcome = humanize.Comma(int64(e.ResultCount)) + " " + plural(e.ResultCount, "result", "results")
		}
		fmt.Fprintf(w, "  %-30s %-9s %-16s %-14s %s\n",
			truncateForDisplay(e.Term, 30),
			e.Category,
			outcome,
			humanize.Time(e.CreatedAt),
			dimColor.Sprint(e.ID),
		)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// truncateForDisplay flattens text to one line and shortens it to maxLen
// runes.
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
