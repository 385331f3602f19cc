package tileview

import (
	"image"
	"math"
)

// RectF is an axis-aligned rectangle with float64 position and size.
// It is the destination-space counterpart of image.Rectangle: tile
// rectangles become fractional while a zoom animation scales the grid.
type RectF struct {
	X, Y, W, H float64
}

// RectFFromInts builds a RectF from integer position and size.
func RectFFromInts(x, y, w, h int) RectF {
	return RectF{X: float64(x), Y: float64(y), W: float64(w), H: float64(h)}
}

// Intersects reports whether r overlaps the rectangle [0,w) x [0,h)
// anchored at the origin. Touching edges do not count as overlap.
func (r RectF) Intersects(w, h float64) bool {
	return r.X < w && r.Y < h && r.X+r.W > 0 && r.Y+r.H > 0
}

// Round returns r with all fields rounded to the nearest integer,
// as an image.Rectangle.
func (r RectF) Round() image.Rectangle {
	return image.Rect(roundInt(r.X), roundInt(r.Y), roundInt(r.X+r.W), roundInt(r.Y+r.H))
}

// roundInt rounds to the nearest integer, halves away from zero.
func roundInt(v float64) int {
	return int(math.Round(v))
}

// clampF limits v to the closed interval [lo, hi].
// When lo > hi (a grid smaller than the viewport) it returns lo.
func clampF(v, lo, hi float64) float64 {
	if lo > hi {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampInt limits v to the closed interval [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nearestMultiple returns the multiple of m closest to v, never below m.
func nearestMultiple(v, m int) int {
	if m <= 0 {
		return v
	}
	n := (v + m/2) / m * m
	if n < m {
		n = m
	}
	return n
}
