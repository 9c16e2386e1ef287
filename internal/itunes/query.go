package itunes

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultBaseURL is the public iTunes Search API host.
const DefaultBaseURL = "https://itunes.apple.com"

var (
	// ErrEmptyText is returned when the search text is blank after trimming.
	ErrEmptyText = errors.New("search text is empty")
	// ErrEncodingFailed is returned when the search text cannot be
	// percent-encoded (it is not valid UTF-8).
	ErrEncodingFailed = errors.New("search text cannot be encoded")
)

// Category restricts a search to a coarse content type.
type Category int

const (
	All Category = iota
	Music
	Software
	Ebooks
)

// Categories lists the selectable categories in segment order.
var Categories = []Category{All, Music, Software, Ebooks}

func (c Category) String() string {
	switch c {
	case Music:
		return "music"
	case Software:
		return "software"
	case Ebooks:
		return "ebooks"
	default:
		return "all"
	}
}

// Entity returns the entity query value, or "" when the category does not
// restrict the search. All deliberately omits the parameter.
func (c Category) Entity() string {
	switch c {
	case Music:
		return "musicTrack"
	case Software:
		return "software"
	case Ebooks:
		return "ebook"
	default:
		return ""
	}
}

// ParseCategory parses a category name as used in config files and flags.
func ParseCategory(name string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return All, nil
	case "music":
		return Music, nil
	case "software", "apps":
		return Software, nil
	case "ebooks", "ebook", "books":
		return Ebooks, nil
	default:
		return All, fmt.Errorf("unknown category %q", name)
	}
}

// CategoryFromIndex maps a segment index to a category. Out of range
// indices search everything.
func CategoryFromIndex(idx int) Category {
	if idx < 0 || idx >= len(Categories) {
		return All
	}
	return Categories[idx]
}

// Request describes one outbound search.
type Request struct {
	Term     string
	Category Category
	URL      string
}

// BuildRequest validates the search text and produces the request URL:
//
//	<baseURL>/search?term=<encoded>[&entity=<kind>]
//
// An empty baseURL means DefaultBaseURL.
func BuildRequest(baseURL, text string, category Category) (Request, error) {
	if strings.TrimSpace(text) == "" {
		return Request{}, ErrEmptyText
	}
	encoded, err := EncodeQueryComponent(text)
	if err != nil {
		return Request{}, err
	}

	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString("/search?term=")
	b.WriteString(encoded)
	if entity := category.Entity(); entity != "" {
		b.WriteString("&entity=")
		b.WriteString(entity)
	}

	return Request{
		Term:     text,
		Category: category,
		URL:      b.String(),
	}, nil
}

const upperHex = "0123456789ABCDEF"

// EncodeQueryComponent percent-encodes every byte except ASCII letters,
// digits and "-._~". Spaces become %20, not "+".
func EncodeQueryComponent(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrEncodingFailed
	}

	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0F])
	}
	return b.String(), nil
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
