package tileview

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the viewer's current interaction state.
type State int

// Viewer states. Zoom and pan requests are only accepted while Idle;
// gestures arriving during an animation are ignored, not queued.
const (
	// StateIdle means no gesture or animation is active.
	StateIdle State = iota

	// StatePanning means a drag is in progress; pan deltas are applied
	// synchronously as they arrive.
	StatePanning

	// StateAutoPanning means the post-drag deceleration is animating.
	StateAutoPanning

	// StateZooming means a zoom level transition is animating.
	StateZooming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePanning:
		return "panning"
	case StateAutoPanning:
		return "auto-panning"
	case StateZooming:
		return "zooming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Viewer is a tiled zoomable image viewer bound to one image and one
// canvas. It owns the zoom/pan state machine, the precomputed grid
// geometry of every zoom level, the tile image cache and the fetch queue.
//
// A Viewer is driven by explicit Tick calls: each tick applies completed
// tile fetches, advances any running animation by one frame, and repaints
// if anything changed. Hosts call Tick from their render loop (or use Run);
// tests call it directly to step animations deterministically.
//
// A Viewer is not safe for concurrent use; see the package documentation.
type Viewer struct {
	canvas Canvas
	client *Client
	src    string
	opts   viewerOptions

	viewportW int
	viewportH int

	meta      Metadata
	store     *GridStore
	loader    *Loader
	statsSent atomic.Bool

	state     State
	level     int
	nextLevel int

	// panX, panY is the grid origin in viewport coordinates. Fractional
	// while a gesture or animation is active; rounded to integers when the
	// viewer settles, since sub-pixel offsets cause visible tile seams.
	panX, panY float64

	// drawScaleX, drawScaleY scale grid coordinates while a zoom
	// transition is in flight; both are exactly 1 otherwise.
	drawScaleX, drawScaleY float64

	zoom zoomAnim
	auto autoPanAnim
	drag dragState

	initialized bool
	failed      bool
	closed      bool
	dirty       bool
}

// New creates a viewer for the given image on the given canvas. The canvas
// must already have its final size; a zero-sized canvas is a contract
// violation and fails fast. Call Init to fetch metadata and start serving.
func New(canvas Canvas, client *Client, src string, opts ...Option) (*Viewer, error) {
	if canvas == nil {
		return nil, fmt.Errorf("tileview: nil canvas")
	}
	if client == nil {
		return nil, fmt.Errorf("tileview: nil client")
	}
	w, h := canvas.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidDimensions, w, h)
	}

	o := defaultViewerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	v := &Viewer{
		canvas:     canvas,
		client:     client,
		src:        src,
		opts:       o,
		viewportW:  w,
		viewportH:  h,
		level:      1,
		drawScaleX: 1,
		drawScaleY: 1,
	}
	v.loader = NewLoader(v.fetchTile, o.fetchLimit)
	v.loader.delay = o.progressDelay
	return v, nil
}

// Init fetches the image metadata and precomputes the grid geometry of
// every zoom level. It blocks until the metadata request finishes; hosts
// that must not block call it from a goroutine and rely on OnReady.
//
// On failure the viewer stays uninitialized, paints an error glyph on the
// next tick, invokes OnError, and returns an error wrapping ErrMetadata.
// Init is a no-op on an already initialized viewer.
func (v *Viewer) Init(ctx context.Context) error {
	if v.closed {
		return ErrViewerClosed
	}
	if v.initialized {
		return nil
	}

	md, err := v.client.Metadata(ctx, v.src)
	if err != nil {
		v.fail(err)
		return err
	}
	store, err := NewGridStore(
		image.Pt(md.Width, md.Height),
		image.Pt(v.viewportW, v.viewportH),
		v.opts.maxTiles, v.opts.alignWindow,
	)
	if err != nil {
		v.fail(err)
		return err
	}

	v.meta = md
	v.store = store
	v.level = 1
	v.centerPan()
	v.initialized = true
	v.dirty = true

	Logger().Info("tileview: viewer ready",
		slog.String("src", v.src),
		slog.Int("width", md.Width), slog.Int("height", md.Height),
		slog.Int("levels", store.MaxLevel()))

	if v.opts.onReady != nil {
		v.opts.onReady(md)
	}
	v.Tick()
	return nil
}

// fail records an initialization failure.
func (v *Viewer) fail(err error) {
	v.failed = true
	v.dirty = true
	Logger().Warn("tileview: initialization failed",
		slog.String("src", v.src), slog.Any("error", err))
	if v.opts.onError != nil {
		v.opts.onError(err)
	}
}

// fetchTile is the loader's FetchFunc. It runs on worker goroutines; the
// grid store is immutable after Init, so reading specs here is safe.
func (v *Viewer) fetchTile(ctx context.Context, level, tile int) (image.Image, error) {
	spec := v.store.Spec(level)
	return v.client.Tile(ctx, TileRequest{
		Src:    v.src,
		Width:  spec.Width,
		Height: spec.Height,
		Tile:   tile,
		Count:  spec.TileCount,
		// Count the first request of the session in the server's stats, so
		// one viewing session registers as one view regardless of how many
		// tiles it fetches.
		Stats: level == 1 && v.statsSent.CompareAndSwap(false, true),
	})
}

// Tick advances the viewer by one frame: it applies completed tile
// fetches, steps any active animation, and repaints if anything changed.
func (v *Viewer) Tick() {
	if v.closed {
		return
	}

	if v.loader != nil && v.store != nil {
		applied := v.loader.Drain(func(level, tile int, img image.Image) {
			v.store.SetTileImage(level, tile, img)
			v.dirty = true
		})
		if applied > 0 && v.opts.onProgress != nil {
			v.opts.onProgress(v.loader.Progress())
		}
	}

	switch v.state {
	case StateZooming:
		v.stepZoom()
	case StateAutoPanning:
		v.stepAutoPan()
	}

	if v.dirty {
		v.paint()
		v.dirty = false
		if v.opts.onFrame != nil {
			v.opts.onFrame()
		}
	}
}

// Run drives Tick on a fixed interval until ctx is canceled or the viewer
// is closed. It must run on the same goroutine as every other call into
// the viewer; hosts with their own render loop call Tick directly instead.
func (v *Viewer) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if v.closed {
				return
			}
			v.Tick()
		}
	}
}

// ZoomIn starts an animated transition one zoom level deeper, centered on
// the middle of the viewport. Ignored unless the viewer is idle.
func (v *Viewer) ZoomIn() {
	v.zoomTo(v.level+1, float64(v.viewportW)/2, float64(v.viewportH)/2)
}

// ZoomInAt starts an animated zoom-in so the content appears to expand
// from the given viewport point (a click or pinch centroid).
func (v *Viewer) ZoomInAt(x, y float64) {
	v.zoomTo(v.level+1, x, y)
}

// ZoomOut starts an animated transition one zoom level out.
func (v *Viewer) ZoomOut() {
	v.zoomTo(v.level-1, float64(v.viewportW)/2, float64(v.viewportH)/2)
}

// ZoomToFit starts an animated transition back to the fit view (level 1).
func (v *Viewer) ZoomToFit() {
	v.zoomTo(1, float64(v.viewportW)/2, float64(v.viewportH)/2)
}

// Reset returns immediately to the fit view: level 1, centered, no
// animation. Any active animation and all queued tile requests are
// canceled.
func (v *Viewer) Reset() {
	if !v.initialized || v.closed {
		return
	}
	v.loader.CancelAll(true)
	v.state = StateIdle
	v.level = 1
	v.nextLevel = 0
	v.drawScaleX, v.drawScaleY = 1, 1
	v.centerPan()
	v.dirty = true
}

// Pan moves the view by (dx, dy) pixels. The offset is constrained so grid
// edges never cross into the viewport, and realigned to integers. Ignored
// unless the viewer is idle.
func (v *Viewer) Pan(dx, dy float64) {
	if !v.initialized || v.closed || v.state != StateIdle {
		return
	}
	v.panX += dx
	v.panY += dy
	v.constrainPan(v.displayedSize())
	v.alignPan()
	v.dirty = true
}

// Resize tells the viewer its canvas was resized. All grid geometry
// depends on the viewport, so every zoom level is recomputed, the tile
// cache and queue are dropped, and the view returns to the fit level.
func (v *Viewer) Resize(w, h int) error {
	if v.closed {
		return ErrViewerClosed
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidDimensions, w, h)
	}
	v.viewportW, v.viewportH = w, h
	if !v.initialized {
		return nil
	}

	store, err := NewGridStore(
		image.Pt(v.meta.Width, v.meta.Height),
		image.Pt(w, h),
		v.opts.maxTiles, v.opts.alignWindow,
	)
	if err != nil {
		return err
	}
	v.loader.CancelAll(true)
	v.store = store
	v.state = StateIdle
	v.level = 1
	v.drawScaleX, v.drawScaleY = 1, 1
	v.centerPan()
	v.dirty = true
	return nil
}

// Close releases the viewer: pending fetches are canceled and every
// subsequent operation is a no-op. Safe to call more than once.
func (v *Viewer) Close() {
	if v.closed {
		return
	}
	v.closed = true
	v.loader.Close()
}

// State returns the current interaction state.
func (v *Viewer) State() State { return v.state }

// Level returns the settled zoom level.
func (v *Viewer) Level() int { return v.level }

// MaxLevel returns the deepest zoom level, or 0 before initialization.
func (v *Viewer) MaxLevel() int {
	if v.store == nil {
		return 0
	}
	return v.store.MaxLevel()
}

// Metadata returns the image metadata and whether it has been loaded.
func (v *Viewer) Metadata() (Metadata, bool) {
	return v.meta, v.initialized
}

// PanOffset returns the grid origin in viewport coordinates.
func (v *Viewer) PanOffset() (x, y float64) { return v.panX, v.panY }

// DrawScale returns the transient per-axis scale factors; both are 1
// unless a zoom transition is animating.
func (v *Viewer) DrawScale() (x, y float64) { return v.drawScaleX, v.drawScaleY }

// ShowProgress reports whether tile loading has been outstanding long
// enough that the host should show a loading indicator.
func (v *Viewer) ShowProgress() bool {
	return v.loader.ShowProgress()
}

// PendingTiles returns the number of tile fetches queued or in flight.
func (v *Viewer) PendingTiles() int {
	return v.loader.Outstanding()
}

// displayedSize returns the grid size on screen, in pixels, including any
// in-flight zoom scaling.
func (v *Viewer) displayedSize() (w, h float64) {
	spec := v.store.Spec(v.level)
	return float64(spec.Width) * v.drawScaleX, float64(spec.Height) * v.drawScaleY
}

// constrainAxis clamps a pan offset on one axis: a grid larger than the
// viewport may pan until its edge meets the viewport edge; a grid that
// fits is always centered and never pannable.
func constrainAxis(pan, displayed, viewport float64) float64 {
	if displayed <= viewport {
		return (viewport - displayed) / 2
	}
	return clampF(pan, viewport-displayed, 0)
}

// constrainPan applies constrainAxis to both axes for the given displayed
// grid size.
func (v *Viewer) constrainPan(w, h float64) {
	v.panX = constrainAxis(v.panX, w, float64(v.viewportW))
	v.panY = constrainAxis(v.panY, h, float64(v.viewportH))
}

// alignPan snaps the pan offset to whole pixels.
func (v *Viewer) alignPan() {
	v.panX = float64(roundInt(v.panX))
	v.panY = float64(roundInt(v.panY))
}

// centerPan centers the grid in the viewport on both axes. A grid larger
// than the viewport centers just the same: the midpoint offset is within
// the pannable range.
func (v *Viewer) centerPan() {
	w, h := v.displayedSize()
	v.panX = float64(roundInt((float64(v.viewportW) - w) / 2))
	v.panY = float64(roundInt((float64(v.viewportH) - h) / 2))
}
