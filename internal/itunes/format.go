package itunes

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPrice renders a price for display. Zero is "Free"; a known ISO
// currency code is formatted with its symbol for the given locale, and an
// unknown code falls back to the plain amount followed by the code.
func FormatPrice(price float64, currencyCode string, tag language.Tag) string {
	if price == 0 {
		return "Free"
	}

	unit, err := currency.ParseISO(strings.TrimSpace(currencyCode))
	if err != nil {
		return strings.TrimSpace(fmt.Sprintf("%.2f %s", price, currencyCode))
	}

	p := message.NewPrinter(tag)
	return p.Sprint(currency.Symbol(unit.Amount(price)))
}

// ArtistLabel is the second line of a result row: "Artist (Type)", or
// "Unknown" when the item has no artist.
func ArtistLabel(r SearchResult) string {
	if r.Artist() == "" {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%s)", r.Artist(), r.DisplayType())
}

// ArtistOrUnknown is the artist line of the detail view.
func ArtistOrUnknown(r SearchResult) string {
	if r.Artist() == "" {
		return "Unknown"
	}
	return r.Artist()
}
