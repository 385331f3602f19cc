package tileview

import (
	"log/slog"
	"math"
)

// zoomAnim is the in-flight state of a zoom level transition. The grid's
// displayed size is interpolated from the old level's size to the new
// level's size; tiles of the old level keep being drawn, scaled, until the
// transition settles.
type zoomAnim struct {
	frame  int
	frames int

	fromW, fromH float64
	toW, toH     float64

	// prevW, prevH is the displayed size after the previous frame, used to
	// compute the per-frame size delta that drives centroid panning.
	prevW, prevH float64

	// cfx, cfy is the zoom centroid as a fraction of the grid, fixed at
	// the start of the transition. Panning by -(sizeDelta * fraction)
	// keeps the content under the centroid stationary, so the image
	// appears to expand from the clicked point.
	cfx, cfy float64
}

// autoPanAnim is the in-flight state of the post-drag deceleration.
type autoPanAnim struct {
	frame  int
	frames int

	fromX, fromY float64
	toX, toY     float64
}

// dragState tracks an active drag gesture.
type dragState struct {
	startX, startY float64
	lastX, lastY   float64

	// velX, velY is the pointer delta of the most recent move, the
	// momentum carried into auto-panning on release.
	velX, velY float64
}

// zoomTo starts an animated transition to the given level, expanding
// toward the viewport point (cx, cy). Requests are ignored unless the
// viewer is idle; gestures are not queued. The target level is clamped to
// [1, MaxLevel].
func (v *Viewer) zoomTo(next int, cx, cy float64) {
	if !v.initialized || v.closed || v.state != StateIdle {
		return
	}
	next = clampInt(next, 1, v.store.MaxLevel())
	if next == v.level {
		return
	}

	// Tiles queued for the old level are about to become irrelevant.
	v.loader.CancelAll(v.opts.enforceLimit)

	from := v.store.Spec(v.level)
	to := v.store.Spec(next)
	fromW, fromH := float64(from.Width), float64(from.Height)

	v.zoom = zoomAnim{
		frames: v.opts.zoomFrames,
		fromW:  fromW, fromH: fromH,
		toW: float64(to.Width), toH: float64(to.Height),
		prevW: fromW, prevH: fromH,
		cfx: clampF((cx-v.panX)/fromW, 0, 1),
		cfy: clampF((cy-v.panY)/fromH, 0, 1),
	}
	v.nextLevel = next
	v.state = StateZooming
	v.dirty = true

	Logger().Info("tileview: zoom transition",
		slog.Int("from", v.level), slog.Int("to", next))
}

// stepZoom advances the zoom animation by one frame.
func (v *Viewer) stepZoom() {
	z := &v.zoom
	z.frame++

	e := 1.0
	if z.frame < z.frames {
		e = v.opts.easing(float64(z.frame) / float64(z.frames))
	}
	w := z.fromW + (z.toW-z.fromW)*e
	h := z.fromH + (z.toH-z.fromH)*e

	// Pan toward the centroid on axes where the grid exceeds the
	// viewport; axes that fit stay centered via the constraint below.
	if w > float64(v.viewportW) {
		v.panX -= (w - z.prevW) * z.cfx
	}
	if h > float64(v.viewportH) {
		v.panY -= (h - z.prevH) * z.cfy
	}
	v.constrainPan(w, h)
	z.prevW, z.prevH = w, h

	old := v.store.Spec(v.level)
	v.drawScaleX = w / float64(old.Width)
	v.drawScaleY = h / float64(old.Height)
	v.dirty = true

	if z.frame >= z.frames {
		v.settleZoom()
	}
}

// settleZoom finalizes a zoom transition: the new level becomes current,
// the draw scale snaps back to 1, the pan offset realigns to integers, and
// queued fetches for tiles that ended up off-screen are dropped.
func (v *Viewer) settleZoom() {
	v.level = v.nextLevel
	v.nextLevel = 0
	v.drawScaleX, v.drawScaleY = 1, 1
	v.constrainPan(v.displayedSize())
	v.alignPan()
	v.state = StateIdle
	v.loader.CancelHidden(v.level, v.visibleSet())
	v.dirty = true

	Logger().Info("tileview: zoom settled", slog.Int("level", v.level))
}

// BeginDrag starts a pan gesture at the given viewport point. Ignored
// unless the viewer is idle.
func (v *Viewer) BeginDrag(x, y float64) {
	if !v.initialized || v.closed || v.state != StateIdle {
		return
	}
	v.drag = dragState{startX: x, startY: y, lastX: x, lastY: y}
	v.state = StatePanning
}

// Drag continues a pan gesture: the pointer delta is applied to the pan
// offset immediately, constrained to the grid edges.
func (v *Viewer) Drag(x, y float64) {
	if v.state != StatePanning {
		return
	}
	d := &v.drag
	d.velX, d.velY = x-d.lastX, y-d.lastY
	d.lastX, d.lastY = x, y

	v.panX += d.velX
	v.panY += d.velY
	v.constrainPan(v.displayedSize())
	v.dirty = true
}

// EndDrag finishes a pan gesture. A release with net movement below the
// drag threshold is a click and zooms in toward the point instead; a real
// drag hands its momentum to the deceleration animation.
func (v *Viewer) EndDrag(x, y float64) {
	if v.state != StatePanning {
		return
	}
	d := v.drag
	v.state = StateIdle

	net := math.Hypot(x-d.startX, y-d.startY)
	if net < v.opts.dragThreshold {
		v.alignPan()
		v.ZoomInAt(x, y)
		return
	}
	if d.velX == 0 && d.velY == 0 {
		v.alignPan()
		v.dirty = true
		return
	}

	// Carry the release momentum: with a linear decay the total distance
	// traveled is half the release velocity times the frame count.
	w, h := v.displayedSize()
	vw, vh := float64(v.viewportW), float64(v.viewportH)
	frames := v.opts.autoPanFrames
	v.auto = autoPanAnim{
		frames: frames,
		fromX:  v.panX, fromY: v.panY,
		toX: constrainAxis(v.panX+d.velX*float64(frames)/2, w, vw),
		toY: constrainAxis(v.panY+d.velY*float64(frames)/2, h, vh),
	}
	v.state = StateAutoPanning
}

// stepAutoPan advances the deceleration by one frame. The curve is a fixed
// ease-out so the motion leaves the pointer's speed and coasts to a stop.
func (v *Viewer) stepAutoPan() {
	a := &v.auto
	a.frame++

	e := 1.0
	if a.frame < a.frames {
		e = EaseOutQuad(float64(a.frame) / float64(a.frames))
	}
	v.panX = a.fromX + (a.toX-a.fromX)*e
	v.panY = a.fromY + (a.toY-a.fromY)*e
	v.dirty = true

	if a.frame >= a.frames {
		v.alignPan()
		v.state = StateIdle
		v.loader.CancelHidden(v.level, v.visibleSet())
	}
}
