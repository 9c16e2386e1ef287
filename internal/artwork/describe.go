package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dustin/go-humanize"
)

// Info summarises downloaded artwork for text output.
type Info struct {
	Format string
	Width  int
	Height int
	Size   int
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d %s, %s", i.Width, i.Height, i.Format, humanize.Bytes(uint64(i.Size)))
}

// Describe decodes the image header of data.
func Describe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   len(data),
	}, nil
}
