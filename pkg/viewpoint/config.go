// Package viewpoint provides the pinhole camera the tracker projects bodies
// through. It mirrors the camera collaborator of the renderer: only the eye
// position, viewing axis and world to pixel mapping are modelled.
package viewpoint

import (
	"fmt"
	"math"
)

// Config holds the intrinsic camera parameters.
type Config struct {
	Width  int     `json:"width" mapstructure:"width"`   // Frame width in pixels
	Height int     `json:"height" mapstructure:"height"` // Frame height in pixels
	HFOV   float64 `json:"hfov" mapstructure:"hfov"`     // Horizontal field of view in degrees
	Near   float64 `json:"near" mapstructure:"near"`     // Points closer than this along the axis are not projected (meters)
}

// Preset names for common configurations
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	Preset4K      = "4k"
	PresetWide    = "wide"
)

const (
	minFOV = 1.0
	maxFOV = 179.0
)

// DefaultConfig returns a 1280x720 camera with a 90 degree horizontal FOV.
func DefaultConfig() Config {
	return Config{
		Width:  1280,
		Height: 720,
		HFOV:   90,
		Near:   0.05,
	}
}

// HD1080Config returns a 1080p camera with the default field of view.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// UHD4KConfig returns a 4K camera with the default field of view.
func UHD4KConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 3840
	cfg.Height = 2160
	return cfg
}

// WideConfig returns a 720p camera with a 120 degree lens.
func WideConfig() Config {
	cfg := DefaultConfig()
	cfg.HFOV = 120
	return cfg
}

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    DefaultConfig(),
		Preset1080p:   HD1080Config(),
		Preset4K:      UHD4KConfig(),
		PresetWide:    WideConfig(),
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c Config) Validate() []string {
	var errors []string

	if c.Width < 1 || c.Height < 1 {
		errors = append(errors, fmt.Sprintf("resolution %dx%d must be positive", c.Width, c.Height))
	}
	if math.IsNaN(c.HFOV) || c.HFOV < minFOV || c.HFOV > maxFOV {
		errors = append(errors, fmt.Sprintf("hfov must be between %.0f and %.0f degrees", minFOV, maxFOV))
	}
	if math.IsNaN(c.Near) || c.Near < 0 {
		errors = append(errors, "near must be zero or positive")
	}

	return errors
}

// FocalLength returns the focal length in pixels.
func (c Config) FocalLength() float64 {
	return float64(c.Width) / 2 / math.Tan(c.HFOV*math.Pi/360)
}
