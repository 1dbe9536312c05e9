// Package tiler partitions a screenshot into named layout regions and
// overlapping sub-tiles, and pre-processes each tile for small-text
// recognition. Everything here is a pure function of the inputs.
package tiler

import "image"

// Fractions of the screen claimed by the navigation rail and the header,
// modeling a common application layout.
const (
	leftPanelFrac = 0.28
	topBarFrac    = 0.18
)

// Region is a named rectangle of the source screenshot.
type Region struct {
	Name string
	Rect image.Rectangle
}

// Regions returns the fixed region set for a screenshot of the given
// dimensions: the full image, the left navigation panel, the top bar and
// the remaining main content area.
func Regions(width, height int) []Region {
	leftW := int(float64(width) * leftPanelFrac)
	topH := int(float64(height) * topBarFrac)
	return []Region{
		{Name: "full", Rect: image.Rect(0, 0, width, height)},
		{Name: "left_panel", Rect: image.Rect(0, 0, leftW, height)},
		{Name: "top_bar", Rect: image.Rect(0, 0, width, topH)},
		{Name: "main", Rect: image.Rect(leftW, topH, width, height)},
	}
}

// Tile subdivides a region into grid×grid sub-tiles. Each tile is padded
// by overlap/2 of a tile's width and height on every side, clamped to the
// region bounds, so adjacent tiles share a strip and a label crossing a
// grid line appears whole in at least one tile. Tiles are returned in
// row-major order; callers that fan tiles out to workers must merge
// results back in this order.
func Tile(region image.Rectangle, grid int, overlap float64) []image.Rectangle {
	if grid < 1 {
		grid = 1
	}
	w := region.Dx()
	h := region.Dy()
	tileW := float64(w) / float64(grid)
	tileH := float64(h) / float64(grid)
	padX := int(tileW * overlap / 2)
	padY := int(tileH * overlap / 2)

	tiles := make([]image.Rectangle, 0, grid*grid)
	for r := 0; r < grid; r++ {
		for c := 0; c < grid; c++ {
			x0 := region.Min.X + int(float64(c)*tileW)
			y0 := region.Min.Y + int(float64(r)*tileH)
			x1 := region.Min.X + int(float64(c+1)*tileW)
			y1 := region.Min.Y + int(float64(r+1)*tileH)
			tiles = append(tiles, image.Rectangle{
				Min: image.Point{X: max(region.Min.X, x0-padX), Y: max(region.Min.Y, y0-padY)},
				Max: image.Point{X: min(region.Max.X, x1+padX), Y: min(region.Max.Y, y1+padY)},
			})
		}
	}
	return tiles
}
