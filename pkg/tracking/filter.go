package tracking

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// unitTolerance treats vectors this close to unit length as already normalized.
const unitTolerance = 1e-15

// Filter is an exponential low-pass filter on head position and direction
// with an optional dead zone. The zero value is an unseeded filter with no
// dead zone.
type Filter struct {
	DeadZone float64 // Raw moves shorter than this (meters) are ignored

	position  r3.Vec
	direction r3.Vec
	lastRaw   r3.Vec // Last accepted raw position
	seeded    bool
}

// NewFilter creates an unseeded filter.
func NewFilter(deadZone float64) *Filter {
	return &Filter{DeadZone: deadZone}
}

// Reset seeds the filter with a raw pose, discarding any previous state.
func (f *Filter) Reset(position, direction r3.Vec) {
	f.position = position
	f.direction = unitOr(direction, direction)
	f.lastRaw = position
	f.seeded = true
}

// Clear drops the seed so the next Update adopts its input directly.
func (f *Filter) Clear() {
	*f = Filter{DeadZone: f.DeadZone}
}

// Seeded reports whether the filter holds a pose.
func (f *Filter) Seeded() bool {
	return f.seeded
}

// Pose returns the current smoothed position and direction.
func (f *Filter) Pose() (position, direction r3.Vec) {
	return f.position, f.direction
}

// LastRaw returns the last raw position the filter accepted.
func (f *Filter) LastRaw() r3.Vec {
	return f.lastRaw
}

// Update advances the filter with a raw sample. Factors are clamped to
// [0, MaxSmoothingFactor]. It reports false when the sample fell inside the
// dead zone and nothing changed.
func (f *Filter) Update(rawPosition, rawDirection r3.Vec, positionFactor, directionFactor float64) (r3.Vec, r3.Vec, bool) {
	if !f.seeded {
		f.Reset(rawPosition, rawDirection)
		return f.position, f.direction, true
	}

	if f.DeadZone > 0 && r3.Norm(r3.Sub(rawPosition, f.lastRaw)) < f.DeadZone {
		return f.position, f.direction, false
	}

	f.position = lerp(f.position, rawPosition, 1-clampFactor(positionFactor))

	dir := lerp(f.direction, rawDirection, 1-clampFactor(directionFactor))
	f.direction = unitOr(dir, rawDirection)

	f.lastRaw = rawPosition
	return f.position, f.direction, true
}

// lerp moves from a toward b by t, snapping onto b once the gap is negligible.
func lerp(a, b r3.Vec, t float64) r3.Vec {
	out := r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
	if r3.Norm(r3.Sub(b, out)) < convergenceEpsilon {
		return b
	}
	return out
}

// unitOr normalizes v, falling back to the normalized fallback when v
// degenerates (e.g. interpolating between opposite directions).
func unitOr(v, fallback r3.Vec) r3.Vec {
	n2 := r3.Norm2(v)
	if math.Abs(n2-1) < unitTolerance {
		return v
	}
	if n2 > convergenceEpsilon {
		return r3.Unit(v)
	}
	if r3.Norm2(fallback) > 0 {
		return r3.Unit(fallback)
	}
	return v
}

func clampFactor(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return clamp(f, 0, MaxSmoothingFactor)
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
