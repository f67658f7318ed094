// Package tracking selects one body out of a live scene, holds the lock
// through detector noise and occlusion, and smooths its head pose.
// This file defines the default limits and tuning constants.
package tracking

import "time"

const (
	// DefaultPickRadius is the pointer pick radius in pixels.
	DefaultPickRadius = 60.0

	// DefaultMaxPickDistance is the farthest a pickable body may be from the
	// viewpoint, in meters.
	DefaultMaxPickDistance = 15.0

	// DefaultReattachMaxDistance is how far (meters) a reappearing body may be
	// from the lost target's last head position and still inherit the lock.
	DefaultReattachMaxDistance = 0.5

	// DefaultGracePeriod is how long a soft lock survives continuous absence.
	DefaultGracePeriod = 2 * time.Second

	// DefaultDeadZone ignores raw head movement below 5 mm, measured from the
	// last accepted raw position. A target that jumps once and then stands
	// still is accepted once and then held: the output stays where that one
	// smoothing step left it (20% of the jump at PositionSmoothing 0.8)
	// until the target moves another 5 mm. Set DeadZone to 0 for output that
	// always settles on the target.
	DefaultDeadZone = 0.005

	// MaxSmoothingFactor caps smoothing factors so the filter always moves at
	// least 1% of the remaining distance per update. A factor of exactly 1
	// would otherwise freeze the output forever.
	MaxSmoothingFactor = 0.99

	// convergenceEpsilon snaps the smoothed value onto the raw value once the
	// remaining gap is below float noise.
	convergenceEpsilon = 1e-9
)

// Millimeters converts a length in millimeters to meters.
func Millimeters(mm float64) float64 {
	return mm / 1000.0
}

// Seconds converts seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
