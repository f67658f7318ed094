package tracking

import "fmt"

// TuningParams holds the parameters that can be adjusted while running.
// Nil fields are left unchanged.
type TuningParams struct {
	// Smoothing
	PositionSmoothing  *float64 `json:"position_smoothing,omitempty"`  // 0 = raw, 1 = frozen (clamped)
	DirectionSmoothing *float64 `json:"direction_smoothing,omitempty"` // 0 = raw, 1 = frozen (clamped)
	DeadZone           *float64 `json:"dead_zone,omitempty"`           // Meters

	// Picking
	PickRadius      *float64 `json:"pick_radius,omitempty"`       // Pixels
	MaxPickDistance *float64 `json:"max_pick_distance,omitempty"` // Meters

	// Loss handling
	ReattachEnabled        *bool    `json:"reattach_enabled,omitempty"`
	ReattachMaxDistance    *float64 `json:"reattach_max_distance,omitempty"` // Meters
	ReattachRequireNearest *bool    `json:"reattach_require_nearest,omitempty"`
	Mode                   *string  `json:"mode,omitempty"`         // "hard" or "soft"
	GraceSeconds           *float64 `json:"grace_seconds,omitempty"` // Soft lock only

	AutoPreview *bool `json:"auto_preview,omitempty"`
}

// Tuning returns the current tunable values.
func (e *Engine) Tuning() TuningParams {
	c := e.config
	mode := c.Mode.String()
	grace := c.GracePeriod.Seconds()
	return TuningParams{
		PositionSmoothing:      &c.PositionSmoothing,
		DirectionSmoothing:     &c.DirectionSmoothing,
		DeadZone:               &c.DeadZone,
		PickRadius:             &c.PickRadius,
		MaxPickDistance:        &c.MaxPickDistance,
		ReattachEnabled:        &c.ReattachEnabled,
		ReattachMaxDistance:    &c.ReattachMaxDistance,
		ReattachRequireNearest: &c.ReattachRequireNearest,
		Mode:                   &mode,
		GraceSeconds:           &grace,
		AutoPreview:            &c.AutoPreview,
	}
}

// ApplyTuning validates and applies new parameters. Nothing changes when
// any value is invalid. Must be called from the tick goroutine.
func (e *Engine) ApplyTuning(p TuningParams) error {
	next := e.config

	if p.PositionSmoothing != nil {
		next.PositionSmoothing = *p.PositionSmoothing
	}
	if p.DirectionSmoothing != nil {
		next.DirectionSmoothing = *p.DirectionSmoothing
	}
	if p.DeadZone != nil {
		next.DeadZone = *p.DeadZone
	}
	if p.PickRadius != nil {
		next.PickRadius = *p.PickRadius
	}
	if p.MaxPickDistance != nil {
		next.MaxPickDistance = *p.MaxPickDistance
	}
	if p.ReattachEnabled != nil {
		next.ReattachEnabled = *p.ReattachEnabled
	}
	if p.ReattachMaxDistance != nil {
		next.ReattachMaxDistance = *p.ReattachMaxDistance
	}
	if p.ReattachRequireNearest != nil {
		next.ReattachRequireNearest = *p.ReattachRequireNearest
	}
	if p.Mode != nil {
		mode, err := ParseLockMode(*p.Mode)
		if err != nil {
			return fmt.Errorf("apply tuning: %w", err)
		}
		next.Mode = mode
	}
	if p.GraceSeconds != nil {
		next.GracePeriod = Seconds(*p.GraceSeconds)
	}
	if p.AutoPreview != nil {
		next.AutoPreview = *p.AutoPreview
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("apply tuning: %w", err)
	}

	e.config = next
	e.filter.DeadZone = next.DeadZone
	e.lock.Mode = next.Mode
	e.lock.GracePeriod = next.GracePeriod

	e.logger.Info("tuning applied",
		"position_smoothing", next.PositionSmoothing,
		"direction_smoothing", next.DirectionSmoothing,
		"dead_zone", next.DeadZone,
		"mode", next.Mode.String(),
		"grace", next.GracePeriod)
	return nil
}
