// Package ggcanvas adapts a gogpu/gg drawing context to the tileview
// Canvas interface, so a viewer can paint straight into a gg pixmap (and
// from there to a window surface or a PNG).
package ggcanvas

import (
	"image"

	"github.com/gogpu/gg"

	"github.com/gogpu/tileview"
)

// Canvas wraps a *gg.Context as a tileview.Canvas.
//
// Decoded tile images are converted to gg image buffers on first draw and
// the conversions are cached per source image, so each tile is converted
// at most once per session. Like the viewer itself, a Canvas must only be
// used from one goroutine.
type Canvas struct {
	dc *gg.Context
	bg gg.RGBA

	bufs map[image.Image]*gg.ImageBuf
}

// New wraps the given drawing context. The context's size is the viewer's
// viewport.
func New(dc *gg.Context) *Canvas {
	return &Canvas{
		dc:   dc,
		bg:   gg.RGB(0, 0, 0),
		bufs: make(map[image.Image]*gg.ImageBuf),
	}
}

// SetBackground sets the color used by Clear. Black by default.
func (c *Canvas) SetBackground(col gg.RGBA) { c.bg = col }

// Context returns the wrapped drawing context.
func (c *Canvas) Context() *gg.Context { return c.dc }

// Size returns the drawing context dimensions.
func (c *Canvas) Size() (w, h int) {
	return c.dc.Width(), c.dc.Height()
}

// Clear erases the context to the background color.
func (c *Canvas) Clear() {
	c.dc.ClearWithColor(c.bg)
}

// DrawImage draws the src sub-rectangle of img scaled into dst.
func (c *Canvas) DrawImage(img image.Image, src image.Rectangle, dst tileview.RectF) {
	if src.Empty() || dst.W <= 0 || dst.H <= 0 {
		return
	}
	buf, ok := c.bufs[img]
	if !ok {
		buf = gg.ImageBufFromImage(img)
		c.bufs[img] = buf
	}
	c.dc.DrawImageEx(buf, gg.DrawImageOptions{
		X:             dst.X,
		Y:             dst.Y,
		DstWidth:      dst.W,
		DstHeight:     dst.H,
		SrcRect:       &src,
		Interpolation: gg.InterpBilinear,
		Opacity:       1.0,
	})
}

// DrawErrorGlyph strokes a small X centered on the context. Text rendering
// would need a font face configured on the context; crossed lines do not.
func (c *Canvas) DrawErrorGlyph() {
	w, h := float64(c.dc.Width()), float64(c.dc.Height())
	cx, cy := w/2, h/2
	s := min(w, h) / 12

	c.dc.SetRGB(0.75, 0.75, 0.75)
	c.dc.SetLineWidth(3)
	c.dc.DrawLine(cx-s, cy-s, cx+s, cy+s)
	c.dc.DrawLine(cx-s, cy+s, cx+s, cy-s)
	_ = c.dc.Stroke()
}

var _ tileview.Canvas = (*Canvas)(nil)
