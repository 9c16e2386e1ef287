package cli

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/text/language"

	"github.com/hession/storesearch/internal/itunes"
	"github.com/hession/storesearch/internal/search"
)

// SearchOnce runs a single search and waits until it settles or ctx ends.
func SearchOnce(ctx context.Context, fetcher search.Fetcher, text string, category itunes.Category, tag language.Tag) (search.State, error) {
	// The coordinator drops requests it cannot build without a transition.
	if _, err := itunes.BuildRequest("", text, category); err != nil {
		return search.State{}, err
	}

	settled := make(chan search.State, 1)
	coord := search.NewCoordinator(fetcher,
		search.WithLocale(tag),
		search.WithObserver(func(s search.State) {
			if s.Kind.Settled() {
				select {
				case settled <- s:
				default:
				}
			}
		}),
	)
	defer coord.Close()

	coord.Submit(text, category)

	select {
	case s := <-settled:
		return s, nil
	case <-ctx.Done():
		return search.State{}, ctx.Err()
	}
}

// WriteOutcome prints a settled state as rows, or as the JSON envelope when
// asJSON is set. A network error prints the alert text.
func WriteOutcome(w io.Writer, s search.State, asJSON bool) error {
	if s.Kind == search.NetworkError {
		fmt.Fprintf(w, "%s %s\n", search.AlertTitle, search.ErrorMessage)
		return nil
	}
	if !asJSON {
		RenderRows(w, s)
		return nil
	}

	data, err := itunes.Encode(s.ResultSet)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
