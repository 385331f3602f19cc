// Package tileview provides a tiled, zoomable image viewer for Go.
//
// # Overview
//
// tileview renders very large images progressively by splitting every zoom
// level into a grid of independently fetched tiles, the way deep-zoom image
// viewers do. It is designed to sit on top of an image server that can
// deliver an image (or a single tile of it) at an arbitrary size, and on top
// of a 2D drawing surface such as a gogpu/gg context.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gg"
//	    "github.com/gogpu/tileview"
//	    "github.com/gogpu/tileview/integration/ggcanvas"
//	)
//
//	dc := gg.NewContext(800, 600)
//	client := tileview.NewClient("https://images.example.com/v1")
//	v, err := tileview.New(ggcanvas.New(dc), client, "folder/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Close()
//
//	if err := v.Init(ctx); err != nil {
//	    log.Fatal(err) // metadata could not be loaded
//	}
//	v.ZoomIn()
//	for range time.Tick(16 * time.Millisecond) {
//	    v.Tick()
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: Viewer, Client, Canvas, GridSpec, TileSpec, Easing
//   - Internal: tilecache (sharded tile image cache)
//   - Integration: ggcanvas (gogpu/gg drawing surface adapter)
//
// The Viewer is a state machine (idle, panning, auto-panning, zooming)
// advanced by explicit Tick calls, so hosts control frame pacing and tests
// can step animations deterministically. Tile fetches run on a small worker
// pool; their completions are applied on the next Tick, so all viewer state
// is owned by a single goroutine.
//
// # Coordinate System
//
// Uses standard computer graphics coordinates: origin (0,0) at the top-left,
// X increases right, Y increases down. Tile numbers are 1-based, row-major.
//
// # Concurrency
//
// A Viewer is not safe for concurrent use. Call its methods, including Tick,
// from one goroutine. Client and the tile cache are safe for concurrent use.
package tileview

// Version is the current version of the library.
const Version = "0.2.0"
