package tileview

// paint redraws the canvas from the current zoom/pan state and the tile
// cache. It is a pure function of viewer state: tiles whose (scaled)
// rectangle intersects the viewport are drawn from the cache when loaded,
// or from the best coarser-level fallback while their fetch is pending.
//
// Missing tiles are requested after drawing — but never while a zoom
// transition is animating, since those requests would target a level that
// is about to be left.
func (v *Viewer) paint() {
	v.canvas.Clear()

	if v.failed {
		v.canvas.DrawErrorGlyph()
		return
	}
	if !v.initialized {
		return
	}

	spec := v.store.Spec(v.level)
	vw, vh := float64(v.viewportW), float64(v.viewportH)

	var needed []int
	for n := 1; n <= spec.TileCount; n++ {
		ts := spec.Tile(n)
		dst := RectF{
			X: v.panX + float64(ts.X1)*v.drawScaleX,
			Y: v.panY + float64(ts.Y1)*v.drawScaleY,
			W: float64(ts.Width) * v.drawScaleX,
			H: float64(ts.Height) * v.drawScaleY,
		}
		if !dst.Intersects(vw, vh) {
			continue
		}

		if img, ok := v.store.TileImage(v.level, n); ok {
			v.canvas.DrawImage(img, img.Bounds(), dst)
			continue
		}
		if fb, ok := v.store.Fallback(v.level, n); ok {
			v.canvas.DrawImage(fb.Image, fb.Src, dst)
		}
		needed = append(needed, n)
	}

	if v.state != StateZooming {
		for _, n := range needed {
			v.loader.Request(v.level, n)
		}
	}
}

// visibleSet returns the tile numbers of the current level whose
// rectangles intersect the viewport at the current pan and draw scale.
func (v *Viewer) visibleSet() map[int]bool {
	spec := v.store.Spec(v.level)
	vw, vh := float64(v.viewportW), float64(v.viewportH)

	visible := make(map[int]bool, spec.TileCount)
	for n := 1; n <= spec.TileCount; n++ {
		ts := spec.Tile(n)
		dst := RectF{
			X: v.panX + float64(ts.X1)*v.drawScaleX,
			Y: v.panY + float64(ts.Y1)*v.drawScaleY,
			W: float64(ts.Width) * v.drawScaleX,
			H: float64(ts.Height) * v.drawScaleY,
		}
		if dst.Intersects(vw, vh) {
			visible[n] = true
		}
	}
	return visible
}
