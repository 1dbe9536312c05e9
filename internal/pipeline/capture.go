package pipeline

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// Capture is one screenshot held for the lifetime of a run: the raw
// encoded bytes (sent to the vision model as-is) and the decoded image
// (cropped into tiles). Immutable once loaded.
type Capture struct {
	Bytes  []byte
	Image  image.Image
	Width  int
	Height int
}

// LoadCapture reads and decodes a screenshot from disk.
func LoadCapture(path string) (*Capture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}
	b := img.Bounds()
	return &Capture{Bytes: raw, Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}
