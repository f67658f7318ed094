package tracking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// LockMode decides what happens when a locked target disappears.
type LockMode int

const (
	// SoftLock releases the target after GracePeriod of continuous absence.
	SoftLock LockMode = iota
	// HardLock never releases on its own; only an explicit unlock exits.
	HardLock
)

// String returns the mode name used in logs and config files.
func (m LockMode) String() string {
	switch m {
	case HardLock:
		return "hard"
	case SoftLock:
		return "soft"
	default:
		return fmt.Sprintf("LockMode(%d)", int(m))
	}
}

// ParseLockMode parses "hard" or "soft".
func ParseLockMode(s string) (LockMode, error) {
	switch s {
	case "hard":
		return HardLock, nil
	case "soft", "":
		return SoftLock, nil
	default:
		return SoftLock, fmt.Errorf("%w: unknown lock mode %q", ErrInvalidConfig, s)
	}
}

// Config holds all tunable parameters of the engine. It is fixed at
// construction; runtime changes go through TuningParams.
type Config struct {
	// Picking
	PickRadius      float64 // Pixels around the pointer that count as a hit
	MaxPickDistance float64 // Meters from the viewpoint

	// Reattachment
	ReattachEnabled        bool
	ReattachMaxDistance    float64 // Meters from the last known head position
	ReattachRequireNearest bool    // Only the globally nearest body may inherit the lock

	// Lock policy
	Mode        LockMode
	GracePeriod time.Duration // Soft lock only

	// Smoothing (0 = adopt raw instantly, 1 = never move, clamped to MaxSmoothingFactor)
	PositionSmoothing  float64
	DirectionSmoothing float64
	DeadZone           float64 // Meters; 0 disables

	// Preview the nearest body while unlocked
	AutoPreview bool

	// Joint layout used to resolve the head pose
	Layout skeleton.Layout
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		PickRadius:      DefaultPickRadius,
		MaxPickDistance: DefaultMaxPickDistance,

		ReattachEnabled:        true,
		ReattachMaxDistance:    DefaultReattachMaxDistance,
		ReattachRequireNearest: true,

		Mode:        SoftLock,
		GracePeriod: DefaultGracePeriod,

		PositionSmoothing:  0.8,  // 20% new, 80% old
		DirectionSmoothing: 0.85, // Direction is noisier than position
		DeadZone:           DefaultDeadZone,

		AutoPreview: true,

		Layout: skeleton.DefaultLayout(),
	}
}

// SteadyConfig returns a configuration for slow, very stable output
// (e.g. a broadcast virtual camera).
func SteadyConfig() Config {
	cfg := DefaultConfig()
	cfg.PositionSmoothing = 0.92
	cfg.DirectionSmoothing = 0.95
	cfg.DeadZone = Millimeters(10)
	cfg.GracePeriod = 4 * time.Second
	return cfg
}

// ResponsiveConfig returns a configuration that follows the target closely
// (e.g. an overlay pinned to the head).
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.PositionSmoothing = 0.5
	cfg.DirectionSmoothing = 0.6
	cfg.DeadZone = Millimeters(2)
	cfg.GracePeriod = time.Second
	return cfg
}

// HardLockConfig returns the default configuration with hard locking.
func HardLockConfig() Config {
	cfg := DefaultConfig()
	cfg.Mode = HardLock
	return cfg
}

// Preset names accepted by GetPreset.
const (
	PresetDefault    = "default"
	PresetSteady     = "steady"
	PresetResponsive = "responsive"
	PresetHardLock   = "hard"
)

// Presets returns all named configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:    DefaultConfig(),
		PresetSteady:     SteadyConfig(),
		PresetResponsive: ResponsiveConfig(),
		PresetHardLock:   HardLockConfig(),
	}
}

// GetPreset returns a preset by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid tracking config")

// FieldError describes one invalid configuration field.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *FieldError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate rejects configurations that would misbehave mid-tick.
// All problems are reported together.
func (c Config) Validate() error {
	var errs []error

	checkFactor := func(name string, v float64) {
		if math.IsNaN(v) || v < 0 || v > 1 {
			errs = append(errs, &FieldError{Field: name, Value: v, Reason: "must be within [0,1]"})
		}
	}
	checkLength := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			errs = append(errs, &FieldError{Field: name, Value: v, Reason: "must be a finite non-negative number"})
		}
	}

	checkLength("PickRadius", c.PickRadius)
	checkLength("MaxPickDistance", c.MaxPickDistance)
	checkLength("ReattachMaxDistance", c.ReattachMaxDistance)
	checkLength("DeadZone", c.DeadZone)
	checkFactor("PositionSmoothing", c.PositionSmoothing)
	checkFactor("DirectionSmoothing", c.DirectionSmoothing)

	if c.Mode != SoftLock && c.Mode != HardLock {
		errs = append(errs, &FieldError{Field: "Mode", Value: c.Mode, Reason: "must be hard or soft"})
	}
	if c.GracePeriod < 0 {
		errs = append(errs, &FieldError{Field: "GracePeriod", Value: c.GracePeriod, Reason: "must not be negative"})
	}
	for _, id := range c.Layout.HeadKeypoints {
		if id < 0 {
			errs = append(errs, &FieldError{Field: "Layout.HeadKeypoints", Value: int(id), Reason: "must not be negative"})
		}
	}
	if len(c.Layout.HeadKeypoints) == 0 && c.Layout.Head == skeleton.NoJoint {
		errs = append(errs, &FieldError{Field: "Layout", Value: "empty", Reason: "needs head keypoints or a head joint"})
	}

	return errors.Join(errs...)
}
