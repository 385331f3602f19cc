package tileview

import "image"

// Canvas is the drawing surface the viewer paints on. It is a deliberately
// small slice of a 2D drawing context: the viewer only ever clears the
// surface, blits (possibly scaled) image rectangles, and draws an error
// glyph when initialization failed.
//
// integration/ggcanvas adapts a gogpu/gg context to this interface;
// NewPixmapCanvas provides a dependency-free software implementation.
// Canvas implementations are only called from the viewer's goroutine.
type Canvas interface {
	// Size returns the drawable area in pixels. The viewer treats this as
	// its viewport size.
	Size() (w, h int)

	// Clear erases the surface to its background color.
	Clear()

	// DrawImage draws the src sub-rectangle of img scaled into the dst
	// rectangle, in surface coordinates. dst may be fractional during a
	// zoom animation and may extend beyond the surface; implementations
	// clip.
	DrawImage(img image.Image, src image.Rectangle, dst RectF)

	// DrawErrorGlyph draws a small glyph centered on the surface,
	// indicating that the image could not be loaded.
	DrawErrorGlyph()
}
