package tileview

import "math"

// Easing maps a normalized animation time t in [0, 1] to a progress value.
// Every easing provided by this package is exact at the endpoints:
// f(0) == 0 and f(1) == 1. Back easings overshoot inside the interval,
// which reads as a small elastic bounce when applied to a zoom transition.
type Easing func(t float64) float64

// backOvershoot controls how far the back easings travel past the target.
// The value is the classic Penner constant for a ~10% overshoot.
const backOvershoot = 1.70158

// EaseLinear is constant-rate interpolation.
func EaseLinear(t float64) float64 { return t }

// EaseInQuad accelerates from zero velocity.
func EaseInQuad(t float64) float64 { return t * t }

// EaseOutQuad decelerates to zero velocity.
func EaseOutQuad(t float64) float64 { return t * (2 - t) }

// EaseInOutQuad accelerates until halfway, then decelerates.
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// EaseInSine accelerates along a quarter sine wave.
func EaseInSine(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) }

// EaseOutSine decelerates along a quarter sine wave.
func EaseOutSine(t float64) float64 { return math.Sin(t * math.Pi / 2) }

// EaseInOutSine accelerates and decelerates along a half sine wave.
func EaseInOutSine(t float64) float64 { return -(math.Cos(math.Pi*t) - 1) / 2 }

// EaseInBack pulls back slightly before accelerating toward the target.
func EaseInBack(t float64) float64 {
	return t * t * ((backOvershoot+1)*t - backOvershoot)
}

// EaseOutBack overshoots the target slightly before settling on it.
func EaseOutBack(t float64) float64 {
	t--
	return t*t*((backOvershoot+1)*t+backOvershoot) + 1
}
