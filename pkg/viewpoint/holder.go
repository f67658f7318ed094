package viewpoint

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/tracking"
)

// Holder keeps the current camera for the tick loop. Collaborators update it
// from any goroutine; the runner reads it once per tick.
type Holder struct {
	mu     sync.RWMutex
	config Config
	camera *Camera

	// Called after every successful update
	OnChange func(c *Camera)
}

// NewHolder creates an empty holder. Until Set or Update is called there is
// no viewpoint.
func NewHolder(cfg Config) *Holder {
	return &Holder{config: cfg}
}

// Viewpoint returns the current camera, or nil when none is known.
func (h *Holder) Viewpoint() tracking.Viewpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.camera == nil {
		return nil
	}
	return h.camera
}

// Camera returns the current camera, or nil.
func (h *Holder) Camera() *Camera {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.camera
}

// Config returns the intrinsic parameters used for updates.
func (h *Holder) Config() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Set replaces the camera.
func (h *Holder) Set(c *Camera) {
	h.mu.Lock()
	h.camera = c
	if c != nil {
		h.config = c.Config()
	}
	callback := h.OnChange
	h.mu.Unlock()

	if callback != nil && c != nil {
		callback(c)
	}
}

// Update moves the camera, keeping the current intrinsics.
func (h *Holder) Update(position r3.Vec, yaw, pitch float64) error {
	c, err := New(h.Config(), position, yaw, pitch)
	if err != nil {
		return fmt.Errorf("update viewpoint: %w", err)
	}
	h.Set(c)
	return nil
}

// SetConfig changes the intrinsics and rebuilds the camera in place.
func (h *Holder) SetConfig(cfg Config) error {
	current := h.Camera()
	if current == nil {
		if errs := cfg.Validate(); len(errs) > 0 {
			return fmt.Errorf("validation failed: %v", errs)
		}
		h.mu.Lock()
		h.config = cfg
		h.mu.Unlock()
		return nil
	}

	c, err := New(cfg, current.Position(), current.Yaw(), current.Pitch())
	if err != nil {
		return err
	}
	h.Set(c)
	return nil
}

// Clear forgets the camera.
func (h *Holder) Clear() {
	h.mu.Lock()
	h.camera = nil
	h.mu.Unlock()
}

var _ tracking.ViewSource = (*Holder)(nil)
