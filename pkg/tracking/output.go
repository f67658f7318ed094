package tracking

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Output is what the engine exposes to consumers after each tick.
type Output struct {
	Tick uint64
	Now  time.Duration

	State        State
	Locked       bool
	Preview      bool // Selection is the unlocked nearest-body preview
	HasSelection bool
	SelectedID   int

	Position  r3.Vec  // Smoothed head position (raw for a preview)
	Direction r3.Vec  // Smoothed facing direction (raw for a preview)
	Distance  float64 // Viewpoint to Position, 0 when no viewpoint is known

	Missing    bool          // Locked target absent this tick, output held
	MissingFor time.Duration // How long the target has been absent

	Candidates int // Bodies considered this tick
}

// SelectionSource is the read side consumers depend on.
type SelectionSource interface {
	SelectedID() (int, bool)
	HeadPose() (position, direction r3.Vec)
	IsLocked() bool
}

var (
	_ SelectionSource = (*Engine)(nil)
	_ SelectionSource = (*Port)(nil)
)

// Port holds the latest output for readers on other goroutines. Only the
// tick goroutine publishes to it.
type Port struct {
	mu  sync.RWMutex
	out Output
}

// NewPort creates an empty port.
func NewPort() *Port {
	return &Port{}
}

// Publish stores the latest output.
func (p *Port) Publish(out Output) {
	p.mu.Lock()
	p.out = out
	p.mu.Unlock()
}

// Latest returns the most recent output.
func (p *Port) Latest() Output {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.out
}

// SelectedID returns the selected (or previewed) identifier.
func (p *Port) SelectedID() (int, bool) {
	out := p.Latest()
	return out.SelectedID, out.HasSelection
}

// HeadPose returns the latest head position and direction.
func (p *Port) HeadPose() (r3.Vec, r3.Vec) {
	out := p.Latest()
	return out.Position, out.Direction
}

// IsLocked reports whether the latest output is locked.
func (p *Port) IsLocked() bool {
	return p.Latest().Locked
}
