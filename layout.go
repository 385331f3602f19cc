package tileview

import (
	"fmt"
	"image"
	"math"
)

// TileSpec is the pixel rectangle of one tile within its grid.
// X2 and Y2 are exclusive, so Width == X2-X1 and Height == Y2-Y1 and the
// rectangles of a layout tile the grid exactly.
type TileSpec struct {
	X1, Y1 int
	X2, Y2 int
	Width  int
	Height int
}

// Rect returns the tile rectangle as an image.Rectangle.
func (t TileSpec) Rect() image.Rectangle {
	return image.Rect(t.X1, t.Y1, t.X2, t.Y2)
}

// computeTiles returns the layout of a grid of the given size, as a slice
// indexed by tileNumber-1. Tiles are numbered 1-based in row-major order.
//
// Per-tile dimensions are the floor division of the grid size by the axis
// length; the last row and column absorb the remainders so the union of all
// tiles covers the grid with no gaps and no overlaps.
func computeTiles(width, height, tileCount int) ([]TileSpec, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidDimensions, width, height)
	}
	if tileCount == 1 {
		return []TileSpec{{X2: width, Y2: height, Width: width, Height: height}}, nil
	}

	axis := roundInt(math.Sqrt(float64(tileCount)))
	if axis*axis != tileCount {
		return nil, fmt.Errorf("%w: tile count %d is not a perfect square",
			ErrInvalidDimensions, tileCount)
	}

	tileW := width / axis
	tileH := height / axis
	tiles := make([]TileSpec, 0, tileCount)
	for y := 0; y < axis; y++ {
		for x := 0; x < axis; x++ {
			t := TileSpec{
				X1: x * tileW,
				Y1: y * tileH,
				X2: (x + 1) * tileW,
				Y2: (y + 1) * tileH,
			}
			if x == axis-1 {
				t.X2 = width
			}
			if y == axis-1 {
				t.Y2 = height
			}
			t.Width = t.X2 - t.X1
			t.Height = t.Y2 - t.Y1
			tiles = append(tiles, t)
		}
	}
	return tiles, nil
}

// xyToTile converts 0-based grid coordinates to a 1-based tile number.
func xyToTile(x, y, axis int) int {
	return y*axis + x + 1
}

// tileToXY converts a 1-based tile number to 0-based grid coordinates.
func tileToXY(tile, axis int) (x, y int) {
	n := tile - 1
	return n % axis, n / axis
}
