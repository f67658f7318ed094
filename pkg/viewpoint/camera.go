package viewpoint

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is an immutable pinhole camera placed in the world. Yaw rotates
// about +Y (0 looks down +Z), pitch tilts the axis up. Pixel coordinates
// grow right and down from the top-left corner of the frame.
type Camera struct {
	config   Config
	position r3.Vec
	yaw      float64
	pitch    float64

	forward r3.Vec
	right   r3.Vec
	up      r3.Vec
	focal   float64
}

// New creates a camera at position looking along yaw/pitch (radians).
func New(cfg Config, position r3.Vec, yaw, pitch float64) (*Camera, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}

	forward := r3.Vec{
		X: math.Sin(yaw) * math.Cos(pitch),
		Y: math.Sin(pitch),
		Z: math.Cos(yaw) * math.Cos(pitch),
	}
	right := r3.Vec{X: math.Cos(yaw), Y: 0, Z: -math.Sin(yaw)}

	return &Camera{
		config:   cfg,
		position: position,
		yaw:      yaw,
		pitch:    pitch,
		forward:  forward,
		right:    right,
		up:       r3.Cross(forward, right),
		focal:    cfg.FocalLength(),
	}, nil
}

// Position returns the eye position in world coordinates.
func (c *Camera) Position() r3.Vec { return c.position }

// Forward returns the unit viewing axis.
func (c *Camera) Forward() r3.Vec { return c.forward }

// Config returns the intrinsic parameters.
func (c *Camera) Config() Config { return c.config }

// Yaw returns the yaw angle in radians.
func (c *Camera) Yaw() float64 { return c.yaw }

// Pitch returns the pitch angle in radians.
func (c *Camera) Pitch() float64 { return c.pitch }

// Project maps a world point to pixel coordinates. The flag is false for
// points behind the camera or closer than the near plane.
func (c *Camera) Project(world r3.Vec) (r2.Vec, bool) {
	rel := r3.Sub(world, c.position)
	z := r3.Dot(rel, c.forward)
	if !(z > c.config.Near) {
		return r2.Vec{}, false
	}

	x := r3.Dot(rel, c.right)
	y := r3.Dot(rel, c.up)
	return r2.Vec{
		X: float64(c.config.Width)/2 + c.focal*x/z,
		Y: float64(c.config.Height)/2 - c.focal*y/z,
	}, true
}

// InFrame reports whether a pixel lies inside the image.
func (c *Camera) InFrame(p r2.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(c.config.Width) && p.Y <= float64(c.config.Height)
}

// Center returns the principal point.
func (c *Camera) Center() r2.Vec {
	return r2.Vec{X: float64(c.config.Width) / 2, Y: float64(c.config.Height) / 2}
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
