package viewpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/tracking"
)

const tol = 1e-9

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"default", DefaultConfig(), true},
		{"1080p", HD1080Config(), true},
		{"wide", WideConfig(), true},
		{"zero width", Config{Width: 0, Height: 720, HFOV: 90}, false},
		{"fov too wide", Config{Width: 1280, Height: 720, HFOV: 180}, false},
		{"fov NaN", Config{Width: 1280, Height: 720, HFOV: math.NaN()}, false},
		{"negative near", Config{Width: 1280, Height: 720, HFOV: 90, Near: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			assert.Equal(t, tt.valid, len(errs) == 0, "errors: %v", errs)
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(Preset4K)
	require.NotNil(t, cfg)
	assert.Equal(t, 3840, cfg.Width)

	assert.Nil(t, GetPreset("vga"))
}

func TestConfig_FocalLength(t *testing.T) {
	// 90 degrees across 1280 px puts the frame edge at x/z = 1
	assert.InDelta(t, 640.0, DefaultConfig().FocalLength(), tol)
}

func TestCamera_ProjectStraightAhead(t *testing.T) {
	cam, err := New(DefaultConfig(), r3.Vec{}, 0, 0)
	require.NoError(t, err)

	p, ok := cam.Project(r3.Vec{Z: 3})
	require.True(t, ok)
	assert.InDelta(t, 640.0, p.X, tol)
	assert.InDelta(t, 360.0, p.Y, tol)
	assert.Equal(t, cam.Center(), p)
}

func TestCamera_ProjectAxes(t *testing.T) {
	cam, err := New(DefaultConfig(), r3.Vec{}, 0, 0)
	require.NoError(t, err)

	// Right of the axis maps right, above maps up (smaller Y)
	right, ok := cam.Project(r3.Vec{X: 1, Z: 2})
	require.True(t, ok)
	assert.InDelta(t, 640+640*0.5, right.X, 1e-6)

	above, ok := cam.Project(r3.Vec{Y: 1, Z: 2})
	require.True(t, ok)
	assert.InDelta(t, 360-640*0.5, above.Y, 1e-6)

	// Frame edge at 45 degrees
	edge, ok := cam.Project(r3.Vec{X: 5, Z: 5})
	require.True(t, ok)
	assert.InDelta(t, 1280.0, edge.X, 1e-6)

	assert.True(t, cam.InFrame(cam.Center()))
	assert.False(t, cam.InFrame(r2.Vec{X: -1, Y: 10}))
}

func TestCamera_BehindIsNotProjected(t *testing.T) {
	cam, err := New(DefaultConfig(), r3.Vec{Z: 1}, 0, 0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		point r3.Vec
	}{
		{"behind", r3.Vec{Z: -2}},
		{"on the eye plane", r3.Vec{X: 1, Z: 1}},
		{"inside near plane", r3.Vec{Z: 1.01}},
		{"NaN", r3.Vec{X: math.NaN(), Z: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := cam.Project(tt.point)
			assert.False(t, ok)
		})
	}
}

func TestCamera_YawAndPitch(t *testing.T) {
	// Turned to look down +X
	cam, err := New(DefaultConfig(), r3.Vec{}, math.Pi/2, 0)
	require.NoError(t, err)

	fwd := cam.Forward()
	assert.InDelta(t, 1.0, fwd.X, tol)
	assert.InDelta(t, 0.0, fwd.Z, tol)

	p, ok := cam.Project(r3.Vec{X: 4})
	require.True(t, ok)
	assert.InDelta(t, 640.0, p.X, 1e-6)

	_, ok = cam.Project(r3.Vec{Z: 4})
	assert.False(t, ok, "point on the old axis is now beside the camera")

	// Tilted up 30 degrees
	tilted, err := New(DefaultConfig(), r3.Vec{}, 0, Radians(30))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, tilted.Forward().Y, tol)
	assert.InDelta(t, 1.0, r3.Norm(tilted.Forward()), tol)

	p, ok = tilted.Project(r3.Scale(10, tilted.Forward()))
	require.True(t, ok)
	assert.InDelta(t, 360.0, p.Y, 1e-6)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{}, r3.Vec{}, 0, 0)
	assert.Error(t, err)
}

func TestHolder_NilUntilSet(t *testing.T) {
	h := NewHolder(DefaultConfig())

	// Must be an untyped nil so the engine sees no viewpoint
	assert.True(t, h.Viewpoint() == nil)
	assert.Nil(t, h.Camera())

	var calls int
	h.OnChange = func(*Camera) { calls++ }

	require.NoError(t, h.Update(r3.Vec{Y: 1.5}, 0, 0))
	vp := h.Viewpoint()
	require.NotNil(t, vp)
	assert.Equal(t, r3.Vec{Y: 1.5}, vp.Position())
	assert.Equal(t, 1, calls)

	h.Clear()
	assert.True(t, h.Viewpoint() == nil)
}

func TestHolder_SetConfigKeepsPose(t *testing.T) {
	h := NewHolder(DefaultConfig())
	require.NoError(t, h.Update(r3.Vec{X: 2}, 0.3, 0.1))

	require.NoError(t, h.SetConfig(HD1080Config()))
	cam := h.Camera()
	require.NotNil(t, cam)
	assert.Equal(t, 1920, cam.Config().Width)
	assert.Equal(t, r3.Vec{X: 2}, cam.Position())
	assert.InDelta(t, 0.3, cam.Yaw(), tol)

	assert.Error(t, h.SetConfig(Config{}))
	assert.Equal(t, 1920, h.Config().Width)
}

func TestHolder_ImplementsViewSource(t *testing.T) {
	var src tracking.ViewSource = NewHolder(DefaultConfig())
	assert.Nil(t, src.Viewpoint())
}

func TestAngles(t *testing.T) {
	assert.InDelta(t, 180.0, Degrees(math.Pi), tol)
	assert.InDelta(t, math.Pi/2, Radians(90), tol)
}
