package itunes

import (
	"fmt"
	"strings"
)

// SearchResult is a single catalog item decoded from a search response.
// Values are never modified after Parse returns them.
type SearchResult struct {
	Kind              string   `json:"kind,omitempty"`
	ArtistName        string   `json:"artistName,omitempty"`
	TrackName         string   `json:"trackName,omitempty"`
	TrackPrice        *float64 `json:"trackPrice,omitempty"`
	TrackViewURL      string   `json:"trackViewUrl,omitempty"`
	CollectionName    string   `json:"collectionName,omitempty"`
	CollectionViewURL string   `json:"collectionViewUrl,omitempty"`
	CollectionPrice   *float64 `json:"collectionPrice,omitempty"`
	ItemPrice         *float64 `json:"price,omitempty"`
	ItemGenre         string   `json:"primaryGenreName,omitempty"`
	BookGenres        []string `json:"genres,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	ArtworkSmallURL   string   `json:"artworkUrl60,omitempty"`
	ArtworkLargeURL   string   `json:"artworkUrl100,omitempty"`
}

// ResultSet is the decoded response envelope. Count is the upstream
// resultCount and is informational only; it is not checked against Results.
type ResultSet struct {
	Count   int            `json:"resultCount"`
	Results []SearchResult `json:"results"`
}

// Len returns the number of decoded results.
func (rs ResultSet) Len() int {
	return len(rs.Results)
}

// Name returns the track name, else the collection name, else "".
func (r SearchResult) Name() string {
	if r.TrackName != "" {
		return r.TrackName
	}
	return r.CollectionName
}

// Artist returns the artist name or "".
func (r SearchResult) Artist() string {
	return r.ArtistName
}

// Price returns the track price, else the collection price, else 0.
func (r SearchResult) Price() float64 {
	switch {
	case r.TrackPrice != nil:
		return *r.TrackPrice
	case r.CollectionPrice != nil:
		return *r.CollectionPrice
	default:
		return 0
	}
}

// ViewURL returns the store page for the item.
func (r SearchResult) ViewURL() string {
	if r.TrackViewURL != "" {
		return r.TrackViewURL
	}
	return r.CollectionViewURL
}

// Genre returns the primary genre, or the joined book genres for items
// that only carry the genres list.
func (r SearchResult) Genre() string {
	if r.ItemGenre != "" {
		return r.ItemGenre
	}
	if len(r.BookGenres) > 0 {
		return strings.Join(r.BookGenres, ", ")
	}
	return ""
}

var kindDisplayNames = map[string]string{
	"album":         "Album",
	"audiobook":     "Audio Book",
	"book":          "Book",
	"ebook":         "E-Book",
	"feature-movie": "Movie",
	"music-video":   "Music Video",
	"podcast":       "Podcast",
	"software":      "App",
	"song":          "Song",
	"tv-episode":    "TV Episode",
}

// DisplayType maps the raw kind to a human readable label.
// Audiobooks come back without a kind, so a missing kind reads as one.
func (r SearchResult) DisplayType() string {
	kind := r.Kind
	if kind == "" {
		kind = "audiobook"
	}
	if name, ok := kindDisplayNames[kind]; ok {
		return name
	}
	return "Unknown"
}

// String implements fmt.Stringer for log output.
func (r SearchResult) String() string {
	kind := r.Kind
	if kind == "" {
		kind = "None"
	}
	artist := r.ArtistName
	if artist == "" {
		artist = "None"
	}
	return fmt.Sprintf("Result - Kind: %s, Name: %s, Artist Name: %s", kind, r.Name(), artist)
}
