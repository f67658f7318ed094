package tracking

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PickRadius != DefaultPickRadius {
		t.Errorf("Expected PickRadius=%v, got %v", DefaultPickRadius, cfg.PickRadius)
	}
	if cfg.MaxPickDistance != 15.0 {
		t.Errorf("Expected MaxPickDistance=15, got %v", cfg.MaxPickDistance)
	}
	if cfg.Mode != SoftLock {
		t.Errorf("Expected soft lock by default, got %v", cfg.Mode)
	}
	if cfg.GracePeriod != 2*time.Second {
		t.Errorf("Expected GracePeriod=2s, got %v", cfg.GracePeriod)
	}
	// 5 mm dead zone
	if !floatEquals(cfg.DeadZone, Millimeters(5)) {
		t.Errorf("Expected DeadZone=0.005, got %v", cfg.DeadZone)
	}
}

func TestPresets_AreValid(t *testing.T) {
	configs := []struct {
		name string
		cfg  Config
	}{
		{"Default", DefaultConfig()},
		{"Steady", SteadyConfig()},
		{"Responsive", ResponsiveConfig()},
		{"HardLock", HardLockConfig()},
	}

	for _, tc := range configs {
		if err := tc.cfg.Validate(); err != nil {
			t.Errorf("%s: unexpected validation error: %v", tc.name, err)
		}
	}

	if SteadyConfig().PositionSmoothing <= DefaultConfig().PositionSmoothing {
		t.Error("SteadyConfig should smooth more than DefaultConfig")
	}
	if ResponsiveConfig().PositionSmoothing >= DefaultConfig().PositionSmoothing {
		t.Error("ResponsiveConfig should smooth less than DefaultConfig")
	}
	if HardLockConfig().Mode != HardLock {
		t.Error("HardLockConfig should use hard lock")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"smoothing above one", func(c *Config) { c.PositionSmoothing = 1.2 }, "PositionSmoothing"},
		{"smoothing below zero", func(c *Config) { c.DirectionSmoothing = -0.1 }, "DirectionSmoothing"},
		{"smoothing NaN", func(c *Config) { c.PositionSmoothing = math.NaN() }, "PositionSmoothing"},
		{"negative radius", func(c *Config) { c.PickRadius = -1 }, "PickRadius"},
		{"negative distance", func(c *Config) { c.MaxPickDistance = -3 }, "MaxPickDistance"},
		{"infinite reattach", func(c *Config) { c.ReattachMaxDistance = math.Inf(1) }, "ReattachMaxDistance"},
		{"negative dead zone", func(c *Config) { c.DeadZone = -0.001 }, "DeadZone"},
		{"negative grace", func(c *Config) { c.GracePeriod = -time.Second }, "GracePeriod"},
		{"unknown mode", func(c *Config) { c.Mode = LockMode(7) }, "Mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}

			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("error %v is not a FieldError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %s, want %s", fe.Field, tt.field)
			}
		})
	}
}

func TestConfig_ValidateReportsAllFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PickRadius = -1
	cfg.PositionSmoothing = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		t.Fatalf("expected joined error, got %T", err)
	}
	if n := len(joined.Unwrap()); n != 2 {
		t.Errorf("expected 2 field errors, got %d", n)
	}
}

func TestConfig_BoundaryFactorsAreValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionSmoothing = 0
	cfg.DirectionSmoothing = 1
	cfg.PickRadius = 0
	cfg.DeadZone = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("boundary values should be valid: %v", err)
	}
}

func TestParseLockMode(t *testing.T) {
	if m, err := ParseLockMode("hard"); err != nil || m != HardLock {
		t.Errorf("ParseLockMode(hard) = %v, %v", m, err)
	}
	if m, err := ParseLockMode("soft"); err != nil || m != SoftLock {
		t.Errorf("ParseLockMode(soft) = %v, %v", m, err)
	}
	if _, err := ParseLockMode("sticky"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseLockMode(sticky) error = %v, want ErrInvalidConfig", err)
	}
}

func TestUnitConversions(t *testing.T) {
	if !floatEquals(Millimeters(5), 0.005) {
		t.Errorf("Millimeters(5) = %v", Millimeters(5))
	}
	if Seconds(2.5) != 2500*time.Millisecond {
		t.Errorf("Seconds(2.5) = %v", Seconds(2.5))
	}
}

func TestGetPreset(t *testing.T) {
	for name := range Presets() {
		if GetPreset(name) == nil {
			t.Errorf("GetPreset(%q) returned nil", name)
		}
	}
	if cfg := GetPreset(PresetHardLock); cfg == nil || cfg.Mode != HardLock {
		t.Errorf("GetPreset(hard) = %+v", cfg)
	}
	if GetPreset("turbo") != nil {
		t.Error("unknown preset should return nil")
	}
}
