package tileview

import (
	"fmt"
	"image"
	"math"
)

// sizeLadder pairs preferred grid long-edge sizes with their tile counts.
// Zoom levels above 1 index into this ladder, offset from the first entry
// that is at least as large as the level-1 (fit) size. Tile counts grow by
// a factor of four per step so the tiles-per-axis doubles each level.
var sizeLadder = [...]struct {
	size  int
	tiles int
}{
	{500, 1},
	{960, 4},
	{1728, 16},
	{3120, 64},
	{5600, 256},
	{10240, 1024},
	{18432, 4096},
	{33024, 16384},
	{59392, 65536},
	{107008, 262144},
}

// maxLevelSnapRatio is the fraction of the full image size at which a
// computed grid snaps to the exact source resolution. Snapping prevents
// requesting upscaled tiles that duplicate the level below.
const maxLevelSnapRatio = 0.85

// DefaultAlignWindow is the default search window, in alignment steps on
// each side of the initial estimate, used when adjusting grid dimensions
// to the image aspect ratio.
const DefaultAlignWindow = 10

// GridSize describes the overall geometry of one zoom level.
type GridSize struct {
	// Width and Height are the pixel dimensions of the whole grid at this
	// level. For levels below the maximum they are always divisible by
	// max(AxisLength, 4), so tile edges at different levels align exactly.
	Width  int
	Height int

	// TileCount is the number of tiles in the grid: 1, 4, 16, 64, ...
	TileCount int

	// AxisLength is the number of tiles per row and per column,
	// round(sqrt(TileCount)).
	AxisLength int

	// IsMaxLevel is true when this level reaches the source image
	// resolution or the top of the size ladder.
	IsMaxLevel bool
}

// alignStep returns the divisibility requirement for this grid's
// dimensions.
func (g GridSize) alignStep() int {
	return max(g.AxisLength, 4)
}

// validateAlignment checks the tile-boundary alignment contract. Grids at
// the maximum level are exempt: they are pinned to the exact source
// resolution, which the image owner controls.
func (g GridSize) validateAlignment() error {
	if g.IsMaxLevel {
		return nil
	}
	if m := g.alignStep(); g.Width%m != 0 || g.Height%m != 0 {
		return fmt.Errorf("%w: grid %dx%d not divisible by %d",
			ErrInvalidDimensions, g.Width, g.Height, m)
	}
	return nil
}

// computeGridSize computes the grid geometry for one zoom level.
//
// Level 1 is the fit view: the image scaled (never up) to fit the viewport,
// as a single tile. Higher levels walk the size ladder, starting from the
// first entry at least as large as the fit size, one ladder step per level.
// A level whose target size comes within maxLevelSnapRatio of the full
// image snaps to the exact image dimensions and is flagged IsMaxLevel.
func computeGridSize(level int, img, viewport image.Point, maxTiles, alignWindow int) (GridSize, error) {
	if img.X <= 0 || img.Y <= 0 || viewport.X <= 0 || viewport.Y <= 0 {
		return GridSize{}, fmt.Errorf("%w: image %v viewport %v",
			ErrInvalidDimensions, img, viewport)
	}
	if level < 1 {
		return GridSize{}, fmt.Errorf("%w: zoom level %d", ErrInvalidDimensions, level)
	}
	if maxTiles < 1 {
		maxTiles = 1
	}
	if alignWindow < 1 {
		alignWindow = DefaultAlignWindow
	}

	if level == 1 {
		return fitGridSize(img, viewport, alignWindow), nil
	}

	fit := fitGridSize(img, viewport, alignWindow)
	base := ladderIndexFor(max(fit.Width, fit.Height))
	idx := base + level - 1
	atLadderTop := false
	if idx >= len(sizeLadder) {
		idx = len(sizeLadder) - 1
		atLadderTop = true
	}

	tiles := min(sizeLadder[idx].tiles, maxTiles)
	axis := roundInt(math.Sqrt(float64(tiles)))
	g := GridSize{TileCount: tiles, AxisLength: axis}

	target := sizeLadder[idx].size
	longEdge := max(img.X, img.Y)
	if atLadderTop || float64(target) >= maxLevelSnapRatio*float64(longEdge) {
		// Snap to the source resolution exactly.
		g.Width, g.Height = img.X, img.Y
		g.IsMaxLevel = true
		return g, nil
	}

	g.Width, g.Height = scaleToLongEdge(img, target)
	g.Width, g.Height = alignToAspect(g.Width, g.Height, img, g.alignStep(), alignWindow)
	return g, nil
}

// fitGridSize computes the level-1 grid: the image fit inside the viewport
// preserving its aspect ratio, never scaled above source resolution.
func fitGridSize(img, viewport image.Point, alignWindow int) GridSize {
	g := GridSize{TileCount: 1, AxisLength: 1}

	scale := math.Min(float64(viewport.X)/float64(img.X), float64(viewport.Y)/float64(img.Y))
	if scale >= maxLevelSnapRatio {
		// The image (nearly) fits the viewport at full resolution.
		g.Width, g.Height = img.X, img.Y
		g.IsMaxLevel = true
		return g
	}
	g.Width = roundInt(float64(img.X) * scale)
	g.Height = roundInt(float64(img.Y) * scale)
	g.Width, g.Height = alignToAspect(g.Width, g.Height, img, g.alignStep(), alignWindow)
	return g
}

// ladderIndexFor returns the index of the first ladder entry whose size is
// at least the given fit size, or the last entry when the fit is larger
// than every preferred size.
func ladderIndexFor(fitSize int) int {
	for i, e := range sizeLadder {
		if e.size >= fitSize {
			return i
		}
	}
	return len(sizeLadder) - 1
}

// scaleToLongEdge scales the image dimensions so the longer edge equals
// target, preserving aspect ratio.
func scaleToLongEdge(img image.Point, target int) (w, h int) {
	if img.X >= img.Y {
		return target, roundInt(float64(target) * float64(img.Y) / float64(img.X))
	}
	return roundInt(float64(target) * float64(img.X) / float64(img.Y)), target
}

// alignToAspect adjusts (w, h) to the pair of multiples of step whose ratio
// best approximates the image aspect ratio. It searches a bounded window of
// window steps on each side of the initial estimate and picks the closest
// ratio match; ties are broken by the smallest absolute deviation from the
// estimate. The initial estimate itself is always a candidate, so the
// search cannot fail even for extreme aspect ratios.
func alignToAspect(w, h int, img image.Point, step, window int) (int, int) {
	wantRatio := float64(img.X) / float64(img.Y)

	baseW := nearestMultiple(w, step)
	baseH := nearestMultiple(h, step)

	bestW, bestH := baseW, baseH
	bestRatioErr := math.Inf(1)
	bestDev := math.MaxInt

	for i := -window; i <= window; i++ {
		cw := baseW + i*step
		if cw < step {
			continue
		}
		for j := -window; j <= window; j++ {
			ch := baseH + j*step
			if ch < step {
				continue
			}
			ratioErr := math.Abs(float64(cw)/float64(ch) - wantRatio)
			dev := abs(cw-w) + abs(ch-h)
			if ratioErr < bestRatioErr || (ratioErr == bestRatioErr && dev < bestDev) {
				bestW, bestH = cw, ch
				bestRatioErr = ratioErr
				bestDev = dev
			}
		}
	}
	return bestW, bestH
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
