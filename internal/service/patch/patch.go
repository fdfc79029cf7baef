// Package patch tiles an image into square regions and prepares classifier inputs.
package patch

import (
	"image"

	"freshscan/internal/model"

	"golang.org/x/image/draw"
)

// Size returns the side of the square window used for a w×h image.
func Size(width, height int) int {
	return min(width, height) / 2
}

// Generate tiles a width×height image row-major with non-overlapping squares of
// side Size(width, height), returning at most maxCount boxes. Strips at the right
// and bottom edges narrower than the window are left uncovered.
func Generate(width, height, maxCount int) []model.Box {
	size := Size(width, height)
	if maxCount <= 0 || size <= 0 {
		return []model.Box{}
	}

	boxes := make([]model.Box, 0, min(maxCount, (width/size)*(height/size)))
	for y := 0; y+size <= height; y += size {
		for x := 0; x+size <= width; x += size {
			boxes = append(boxes, model.Box{X1: x, Y1: y, X2: x + size, Y2: y + size})
			if len(boxes) == maxCount {
				return boxes
			}
		}
	}
	return boxes
}

// Extract crops box out of img and scales it to a side×side RGBA image.
// The box is given in coordinates relative to img.Bounds().Min.
func Extract(img image.Image, box model.Box, side int) *image.RGBA {
	origin := img.Bounds().Min
	src := box.Rect().Add(origin).Intersect(img.Bounds())

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	if src.Empty() {
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}

// Resize scales the whole image to a side×side RGBA image.
func Resize(img image.Image, side int) *image.RGBA {
	b := img.Bounds()
	return Extract(img, model.Box{X1: 0, Y1: 0, X2: b.Dx(), Y2: b.Dy()}, side)
}

// Clamp limits box to a width×height image. The result may be empty.
func Clamp(box model.Box, width, height int) model.Box {
	return model.Box{
		X1: max(0, min(box.X1, width)),
		Y1: max(0, min(box.Y1, height)),
		X2: max(0, min(box.X2, width)),
		Y2: max(0, min(box.Y2, height)),
	}
}
