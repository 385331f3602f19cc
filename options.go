package tileview

import "time"

// Defaults for viewer configuration.
const (
	// DefaultMaxTiles caps the tile count of any single zoom level.
	DefaultMaxTiles = 256

	// DefaultZoomFrames is the length of a zoom transition, in ticks.
	DefaultZoomFrames = 20

	// DefaultAutoPanFrames is the length of the deceleration after a drag
	// release, in ticks.
	DefaultAutoPanFrames = 20

	// DefaultDragThreshold is the net pointer movement, in pixels, below
	// which a released drag counts as a click (and triggers a zoom).
	DefaultDragThreshold = 4.0
)

// viewerOptions holds optional configuration for Viewer creation.
type viewerOptions struct {
	maxTiles      int
	alignWindow   int
	zoomFrames    int
	autoPanFrames int
	easing        Easing
	fetchLimit    int
	enforceLimit  bool
	progressDelay time.Duration
	dragThreshold float64

	onReady    func(Metadata)
	onProgress func(float64)
	onError    func(error)
	onFrame    func()
}

// defaultViewerOptions returns the default viewer options.
func defaultViewerOptions() viewerOptions {
	return viewerOptions{
		maxTiles:      DefaultMaxTiles,
		alignWindow:   DefaultAlignWindow,
		zoomFrames:    DefaultZoomFrames,
		autoPanFrames: DefaultAutoPanFrames,
		easing:        EaseOutQuad,
		fetchLimit:    DefaultFetchLimit,
		enforceLimit:  true,
		progressDelay: DefaultProgressDelay,
		dragThreshold: DefaultDragThreshold,
	}
}

// Option configures a Viewer during creation.
// Use functional options to customize Viewer behavior.
//
// Example:
//
//	v, err := tileview.New(canvas, client, "photo.jpg",
//	    tileview.WithMaxTiles(64),
//	    tileview.WithEasing(tileview.EaseInOutSine),
//	)
type Option func(*viewerOptions)

// WithMaxTiles caps the number of tiles per zoom level. Values are rounded
// down to the nearest perfect square by the grid calculator's tile ladder.
func WithMaxTiles(n int) Option {
	return func(o *viewerOptions) {
		if n >= 1 {
			o.maxTiles = n
		}
	}
}

// WithAlignmentWindow sets the search window, in alignment steps, used when
// matching grid dimensions to the image aspect ratio. The default of
// DefaultAlignWindow is sufficient for ordinary images; extreme aspect
// ratios (100:1 panoramas) may benefit from a wider window.
func WithAlignmentWindow(n int) Option {
	return func(o *viewerOptions) {
		if n >= 1 {
			o.alignWindow = n
		}
	}
}

// WithZoomFrames sets how many ticks a zoom transition takes.
func WithZoomFrames(n int) Option {
	return func(o *viewerOptions) {
		if n >= 1 {
			o.zoomFrames = n
		}
	}
}

// WithAutoPanFrames sets how many ticks the post-drag deceleration takes.
func WithAutoPanFrames(n int) Option {
	return func(o *viewerOptions) {
		if n >= 1 {
			o.autoPanFrames = n
		}
	}
}

// WithEasing sets the easing function for zoom transitions.
func WithEasing(e Easing) Option {
	return func(o *viewerOptions) {
		if e != nil {
			o.easing = e
		}
	}
}

// WithFetchLimit sets the number of concurrent tile fetches.
func WithFetchLimit(n int) Option {
	return func(o *viewerOptions) {
		if n >= 1 {
			o.fetchLimit = n
		}
	}
}

// WithEnforceFetchLimit controls the active-count policy when a zoom level
// change cancels pending fetches. True (the default) makes fetches for the
// new level wait for old in-flight fetches to count down; false resets the
// count so the new level starts fetching immediately, at the cost of
// briefly exceeding the fetch limit.
func WithEnforceFetchLimit(enforce bool) Option {
	return func(o *viewerOptions) { o.enforceLimit = enforce }
}

// WithProgressDelay sets how long a fetch must stay outstanding before
// ShowProgress reports true.
func WithProgressDelay(d time.Duration) Option {
	return func(o *viewerOptions) {
		if d >= 0 {
			o.progressDelay = d
		}
	}
}

// WithDragThreshold sets the net pointer movement, in pixels, below which
// a released drag is treated as a click.
func WithDragThreshold(px float64) Option {
	return func(o *viewerOptions) {
		if px >= 0 {
			o.dragThreshold = px
		}
	}
}

// WithOnReady registers a callback invoked once initialization succeeds,
// with the image metadata.
func WithOnReady(fn func(Metadata)) Option {
	return func(o *viewerOptions) { o.onReady = fn }
}

// WithOnProgress registers a callback invoked with the loaded fraction of
// the current tile request batch whenever completions are applied.
func WithOnProgress(fn func(float64)) Option {
	return func(o *viewerOptions) { o.onProgress = fn }
}

// WithOnError registers a callback invoked when initialization fails.
func WithOnError(fn func(error)) Option {
	return func(o *viewerOptions) { o.onError = fn }
}

// WithOnFrame registers a callback invoked after every repaint, typically
// used by hosts to present the canvas.
func WithOnFrame(fn func()) Option {
	return func(o *viewerOptions) { o.onFrame = fn }
}
