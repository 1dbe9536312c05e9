package tiler

import (
	"image"
	"image/color"
	"testing"
)

func TestRegions(t *testing.T) {
	regions := Regions(1000, 500)
	if len(regions) != 4 {
		t.Fatalf("expected 4 regions, got %d", len(regions))
	}

	byName := make(map[string]image.Rectangle, len(regions))
	for _, r := range regions {
		byName[r.Name] = r.Rect
	}

	if got := byName["full"]; got != image.Rect(0, 0, 1000, 500) {
		t.Errorf("full = %v", got)
	}
	if got := byName["left_panel"]; got != image.Rect(0, 0, 280, 500) {
		t.Errorf("left_panel = %v", got)
	}
	if got := byName["top_bar"]; got != image.Rect(0, 0, 1000, 90) {
		t.Errorf("top_bar = %v", got)
	}
	if got := byName["main"]; got != image.Rect(280, 90, 1000, 500) {
		t.Errorf("main = %v", got)
	}
}

func TestTileCountAndOrder(t *testing.T) {
	region := image.Rect(0, 0, 300, 300)
	tiles := Tile(region, 3, 0.3)
	if len(tiles) != 9 {
		t.Fatalf("expected 9 tiles, got %d", len(tiles))
	}

	// Row-major: within a row Min.X increases, across rows Min.Y
	// does not decrease.
	for i := 1; i < len(tiles); i++ {
		if tiles[i].Min.Y < tiles[i-1].Min.Y {
			t.Errorf("tile %d starts above tile %d", i, i-1)
		}
		if tiles[i].Min.Y == tiles[i-1].Min.Y && tiles[i].Min.X <= tiles[i-1].Min.X {
			t.Errorf("tile %d not right of tile %d in the same row", i, i-1)
		}
	}
}

func TestTileStaysInBounds(t *testing.T) {
	region := image.Rect(50, 20, 350, 320)
	for _, tile := range Tile(region, 3, 0.3) {
		if !tile.In(region) {
			t.Errorf("tile %v escapes region %v", tile, region)
		}
	}
}

func TestTileCoversRegion(t *testing.T) {
	region := image.Rect(0, 0, 301, 299) // sizes that do not divide evenly
	tiles := Tile(region, 3, 0.3)

	covered := image.NewAlpha(region)
	for _, tile := range tiles {
		for y := tile.Min.Y; y < tile.Max.Y; y++ {
			for x := tile.Min.X; x < tile.Max.X; x++ {
				covered.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			if covered.AlphaAt(x, y).A == 0 {
				t.Fatalf("pixel (%d,%d) not covered by any tile", x, y)
			}
		}
	}
}

func TestTileAdjacentOverlap(t *testing.T) {
	region := image.Rect(0, 0, 300, 300)
	overlap := 0.3
	tiles := Tile(region, 3, overlap)

	// Horizontally adjacent tiles must share a strip at least
	// overlap/2 of a tile's width wide.
	tileW := region.Dx() / 3
	minStrip := int(float64(tileW) * overlap / 2)
	if strip := tiles[0].Max.X - tiles[1].Min.X; strip < minStrip {
		t.Errorf("tiles 0 and 1 share a %dpx strip, want >= %d", strip, minStrip)
	}
	// Vertically adjacent tiles too.
	if strip := tiles[0].Max.Y - tiles[3].Min.Y; strip < minStrip {
		t.Errorf("tiles 0 and 3 share a %dpx strip, want >= %d", strip, minStrip)
	}
}

func TestTileZeroOverlapPartitions(t *testing.T) {
	region := image.Rect(0, 0, 300, 300)
	tiles := Tile(region, 2, 0)
	if len(tiles) != 4 {
		t.Fatalf("expected 4 tiles, got %d", len(tiles))
	}
	if tiles[0] != image.Rect(0, 0, 150, 150) {
		t.Errorf("tile 0 = %v", tiles[0])
	}
	if tiles[3] != image.Rect(150, 150, 300, 300) {
		t.Errorf("tile 3 = %v", tiles[3])
	}
}

func TestTileDegenerateGrid(t *testing.T) {
	region := image.Rect(0, 0, 100, 100)
	tiles := Tile(region, 0, 0.3)
	if len(tiles) != 1 {
		t.Fatalf("expected 1 tile for grid<1, got %d", len(tiles))
	}
	if tiles[0] != region {
		t.Errorf("single tile %v should equal region %v", tiles[0], region)
	}
}

func TestPreprocessScales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	out := Preprocess(src, 3)
	if out.Bounds().Dx() != 120 || out.Bounds().Dy() != 60 {
		t.Errorf("preprocessed size = %dx%d, want 120x60", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCrop(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	out := Crop(src, image.Rect(10, 20, 60, 80))
	if out.Bounds().Dx() != 50 || out.Bounds().Dy() != 60 {
		t.Errorf("crop size = %dx%d, want 50x60", out.Bounds().Dx(), out.Bounds().Dy())
	}
}
