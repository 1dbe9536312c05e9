package tiler

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
)

// Preprocess prepares a cropped tile for text recognition: grayscale
// conversion, integer upscale, contrast and sharpness enhancement, then a
// 3x3 median filter to knock out single-pixel noise that confuses OCR on
// small UI glyphs.
func Preprocess(tile image.Image, scale int) *image.NRGBA {
	gray := imaging.Grayscale(tile)
	if scale > 1 {
		b := gray.Bounds()
		gray = imaging.Resize(gray, b.Dx()*scale, b.Dy()*scale, imaging.CatmullRom)
	}
	gray = imaging.AdjustContrast(gray, 30)
	gray = imaging.Sharpen(gray, 1.0)
	return median3(gray)
}

// Crop extracts a tile rectangle from the source image.
func Crop(src image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(src, rect)
}

// median3 applies a 3x3 median filter. The input is grayscale so only one
// channel is ranked; R, G and B are written with the same value.
func median3(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	out := imaging.Clone(img)
	var window [9]int
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					i := img.PixOffset(x+dx, y+dy)
					window[n] = int(img.Pix[i])
					n++
				}
			}
			vals := window[:]
			sort.Ints(vals)
			o := out.PixOffset(x, y)
			m := uint8(vals[4])
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = m, m, m
		}
	}
	return out
}
