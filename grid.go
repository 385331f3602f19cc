package tileview

import (
	"fmt"
	"image"

	"github.com/gogpu/tileview/internal/tilecache"
)

// GridSpec is the complete precomputed geometry of one zoom level:
// the overall grid size plus the rectangle of every tile.
type GridSpec struct {
	GridSize

	// Level is the 1-based zoom level this spec belongs to.
	Level int

	// Tiles holds the rectangle of every tile, indexed by tileNumber-1.
	Tiles []TileSpec
}

// Tile returns the spec of the given 1-based tile number.
func (g GridSpec) Tile(n int) TileSpec {
	return g.Tiles[n-1]
}

// FallbackTile is a stand-in for a tile that has not loaded yet: a crop of
// a coarser, already-loaded tile image covering the same normalized region.
type FallbackTile struct {
	// Image is the coarser tile's image.
	Image image.Image

	// Src is the sub-rectangle of Image to draw, in Image's pixel
	// coordinates, clamped to its actual bounds.
	Src image.Rectangle

	// Level is the zoom level the fallback was found at.
	Level int
}

// GridStore owns the precomputed grid geometry of every zoom level and the
// cache of loaded tile images. Grids are computed once at construction;
// the tile cache is append-only for the life of the store.
type GridStore struct {
	specs []GridSpec
	cache *tilecache.Cache[image.Image]
}

// NewGridStore precomputes grid specs for every zoom level from the fit
// view (level 1) up to the level that reaches source resolution or the top
// of the size ladder, and verifies the tile-boundary alignment contract on
// each of them.
func NewGridStore(img, viewport image.Point, maxTiles, alignWindow int) (*GridStore, error) {
	s := &GridStore{cache: tilecache.New[image.Image]()}
	for level := 1; ; level++ {
		gs, err := computeGridSize(level, img, viewport, maxTiles, alignWindow)
		if err != nil {
			return nil, err
		}
		if err := gs.validateAlignment(); err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		tiles, err := computeTiles(gs.Width, gs.Height, gs.TileCount)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		s.specs = append(s.specs, GridSpec{GridSize: gs, Level: level, Tiles: tiles})
		if gs.IsMaxLevel {
			return s, nil
		}
	}
}

// MaxLevel returns the deepest zoom level.
func (s *GridStore) MaxLevel() int {
	return len(s.specs)
}

// Spec returns the grid spec of the given zoom level, which must be in
// [1, MaxLevel].
func (s *GridStore) Spec(level int) GridSpec {
	return s.specs[level-1]
}

// TileImage returns the loaded image of a tile, if present.
func (s *GridStore) TileImage(level, tile int) (image.Image, bool) {
	return s.cache.Get(tilecache.Key{Level: level, Tile: tile})
}

// TileLoaded reports whether a tile image is cached, without touching the
// cache statistics.
func (s *GridStore) TileLoaded(level, tile int) bool {
	return s.cache.Has(tilecache.Key{Level: level, Tile: tile})
}

// SetTileImage stores a loaded tile image.
func (s *GridStore) SetTileImage(level, tile int, img image.Image) {
	s.cache.Set(tilecache.Key{Level: level, Tile: tile}, img)
}

// LoadedTiles returns the number of cached tile images.
func (s *GridStore) LoadedTiles() int {
	return s.cache.Len()
}

// Fallback finds the best substitute for a tile that is not loaded yet.
// It walks coarser levels from level-1 down to 1 looking for a loaded tile
// whose region contains the requested tile, and maps the requested
// rectangle into that tile's pixel coordinates.
//
// Because every level's grid dimensions are multiples of the alignment
// step, a finer tile always falls inside exactly one coarser tile, so the
// containing tile can be located directly from the rectangle's midpoint.
// Once level 1's single tile is loaded, Fallback always succeeds.
func (s *GridStore) Fallback(level, tile int) (FallbackTile, bool) {
	want := s.Spec(level).Tile(tile)
	gw := float64(s.Spec(level).Width)
	gh := float64(s.Spec(level).Height)

	// Normalized rectangle of the requested tile.
	nx1 := float64(want.X1) / gw
	ny1 := float64(want.Y1) / gh
	nx2 := float64(want.X2) / gw
	ny2 := float64(want.Y2) / gh

	for c := level - 1; c >= 1; c-- {
		spec := s.Spec(c)
		cw := float64(spec.Width)
		ch := float64(spec.Height)

		// Locate the coarse tile containing the requested region.
		axis := spec.AxisLength
		tx := clampInt(int((nx1+nx2)/2*cw)/(spec.Width/axis), 0, axis-1)
		ty := clampInt(int((ny1+ny2)/2*ch)/(spec.Height/axis), 0, axis-1)
		n := xyToTile(tx, ty, axis)

		img, ok := s.TileImage(c, n)
		if !ok {
			continue
		}

		// Map the requested rectangle into the coarse tile's spec
		// coordinates, then into the loaded image's actual pixels. The
		// decoded image normally matches the spec size exactly; the scale
		// factors absorb any off-by-one from the server's rounding.
		ct := spec.Tile(n)
		sx := float64(img.Bounds().Dx()) / float64(ct.Width)
		sy := float64(img.Bounds().Dy()) / float64(ct.Height)

		x1 := (nx1*cw - float64(ct.X1)) * sx
		y1 := (ny1*ch - float64(ct.Y1)) * sy
		x2 := (nx2*cw - float64(ct.X1)) * sx
		y2 := (ny2*ch - float64(ct.Y1)) * sy

		b := img.Bounds()
		src := image.Rect(
			clampInt(b.Min.X+roundInt(x1), b.Min.X, b.Max.X),
			clampInt(b.Min.Y+roundInt(y1), b.Min.Y, b.Max.Y),
			clampInt(b.Min.X+roundInt(x2), b.Min.X, b.Max.X),
			clampInt(b.Min.Y+roundInt(y2), b.Min.Y, b.Max.Y),
		)
		if src.Empty() {
			continue
		}
		return FallbackTile{Image: img, Src: src, Level: c}, true
	}
	return FallbackTile{}, false
}

// ClearTiles drops every cached tile image. Useful when the host knows the
// source image changed on the server; geometry changes (a resize) rebuild
// the whole store instead.
func (s *GridStore) ClearTiles() {
	s.cache.Clear()
}

// CacheStats returns the tile cache's cumulative hit and miss counts.
func (s *GridStore) CacheStats() (hits, misses uint64) {
	return s.cache.Stats()
}
