package tileview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PixmapCanvas is a pure-software Canvas over an RGBA pixel buffer. It has
// no rendering dependencies beyond golang.org/x/image and is what the demo
// binary and the tests draw on; GUI hosts typically use the gg adapter in
// integration/ggcanvas instead.
type PixmapCanvas struct {
	img *image.RGBA
	bg  color.RGBA

	// scaler performs the scaled blits. ApproxBiLinear is the quality /
	// speed compromise that suits animation frames.
	scaler xdraw.Interpolator
}

// NewPixmapCanvas creates a software canvas of the given size.
func NewPixmapCanvas(w, h int) (*PixmapCanvas, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalidDimensions, w, h)
	}
	return &PixmapCanvas{
		img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		bg:     color.RGBA{A: 0xff},
		scaler: xdraw.ApproxBiLinear,
	}, nil
}

// SetBackground sets the color used by Clear. Black by default.
func (p *PixmapCanvas) SetBackground(c color.RGBA) { p.bg = c }

// Size returns the canvas dimensions in pixels.
func (p *PixmapCanvas) Size() (w, h int) {
	b := p.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the canvas with the background color.
func (p *PixmapCanvas) Clear() {
	draw.Draw(p.img, p.img.Bounds(), image.NewUniform(p.bg), image.Point{}, draw.Src)
}

// DrawImage draws the src sub-rectangle of img scaled into dst. Fractional
// destination rectangles are rounded to whole pixels; drawing clips to the
// canvas.
func (p *PixmapCanvas) DrawImage(img image.Image, src image.Rectangle, dst RectF) {
	dr := dst.Round()
	if dr.Empty() || src.Empty() {
		return
	}
	p.scaler.Scale(p.img, dr, img, src, xdraw.Over, nil)
}

// DrawErrorGlyph draws a small "X" centered on the canvas.
func (p *PixmapCanvas) DrawErrorGlyph() {
	b := p.img.Bounds()
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}),
		Face: face,
		Dot: fixed.P(
			b.Min.X+b.Dx()/2-face.Advance/2,
			b.Min.Y+b.Dy()/2+face.Ascent/2,
		),
	}
	d.DrawString("X")
}

// Image returns the underlying pixel buffer. The returned image shares
// memory with the canvas; hosts present it after each OnFrame callback.
func (p *PixmapCanvas) Image() *image.RGBA { return p.img }

// EncodePNG writes the current canvas contents as PNG.
func (p *PixmapCanvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, p.img)
}
