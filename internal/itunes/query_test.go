package itunes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category Category
		want     string
	}{
		{"all omits entity", "jack johnson", All, "https://itunes.apple.com/search?term=jack%20johnson"},
		{"music", "x", Music, "https://itunes.apple.com/search?term=x&entity=musicTrack"},
		{"software", "maps", Software, "https://itunes.apple.com/search?term=maps&entity=software"},
		{"ebooks", "dune", Ebooks, "https://itunes.apple.com/search?term=dune&entity=ebook"},
		{"unknown category", "dune", Category(9), "https://itunes.apple.com/search?term=dune"},
		{"unreserved marks", "a-b.c_d~e", All, "https://itunes.apple.com/search?term=a-b.c_d~e"},
		{"reserved characters", "rock&roll=1+1/2?", All,
			"https://itunes.apple.com/search?term=rock%26roll%3D1%2B1%2F2%3F"},
		{"unicode", "Beyoncé", All, "https://itunes.apple.com/search?term=Beyonc%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildRequest("", tt.text, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL)
			assert.Equal(t, tt.text, req.Term)
			assert.Equal(t, tt.category, req.Category)
		})
	}
}

func TestBuildRequest_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n "} {
		for _, cat := range Categories {
			_, err := BuildRequest("", text, cat)
			assert.ErrorIs(t, err, ErrEmptyText, "text %q category %s", text, cat)
		}
	}
}

func TestBuildRequest_InvalidUTF8(t *testing.T) {
	_, err := BuildRequest("", "bad\xff", All)
	assert.ErrorIs(t, err, ErrEncodingFailed)
}

func TestBuildRequest_BaseURL(t *testing.T) {
	req, err := BuildRequest("http://127.0.0.1:8080/", "x", Software)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/search?term=x&entity=software", req.URL)
}

func TestBuildRequest_TermRoundTrips(t *testing.T) {
	texts := []string{
		"jack johnson",
		"  padded  ",
		"100% pure",
		"AC/DC",
		"Sigur Rós",
		"東京事変",
		"emoji 🎸 search",
		"tab\tand\nnewline",
		"a+b c",
	}

	for _, text := range texts {
		for _, cat := range Categories {
			req, err := BuildRequest("", text, cat)
			require.NoError(t, err)

			u, err := url.Parse(req.URL)
			require.NoError(t, err)
			assert.Equal(t, text, u.Query().Get("term"), "category %s", cat)
			assert.Equal(t, cat.Entity(), u.Query().Get("entity"))
		}
	}
}

func TestEncodeQueryComponent_SpacesAreEscaped(t *testing.T) {
	got, err := EncodeQueryComponent("a b")
	require.NoError(t, err)
	assert.Equal(t, "a%20b", got)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", All, false},
		{"All", All, false},
		{"music", Music, false},
		{"software", Software, false},
		{"apps", Software, false},
		{"ebooks", Ebooks, false},
		{"ebook", Ebooks, false},
		{"movies", All, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryFromIndex(t *testing.T) {
	assert.Equal(t, All, CategoryFromIndex(0))
	assert.Equal(t, Music, CategoryFromIndex(1))
	assert.Equal(t, Software, CategoryFromIndex(2))
	assert.Equal(t, Ebooks, CategoryFromIndex(3))
	assert.Equal(t, All, CategoryFromIndex(4))
	assert.Equal(t, All, CategoryFromIndex(-1))
}
