package feed

import (
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/teslashibe/go-targetlock/pkg/tracking"
)

// PointerLatch accumulates operator input between ticks. Button presses are
// latched until the next Drain so that a press between two ticks is never
// lost; the pointer position is level-triggered and always the latest.
//
// A pick keeps the position it was pressed at. The engine applies unlock
// before pick and lock, so an unlock that arrives after a pick or lock
// request cancels that request here; the drained input then reads as
// "unlock" only.
type PointerLatch struct {
	mu      sync.Mutex
	pending tracking.PointerInput
	presses uint64
}

// NewPointerLatch creates an empty latch.
func NewPointerLatch() *PointerLatch {
	return &PointerLatch{}
}

// Move updates the pointer position.
func (l *PointerLatch) Move(p r2.Vec) {
	l.mu.Lock()
	l.pending.Pointer = p
	l.mu.Unlock()
}

// Pick records a pick press at p.
func (l *PointerLatch) Pick(p r2.Vec) {
	l.mu.Lock()
	l.pending.Pointer = p
	l.pending.PickAt = p
	l.pending.PickPressed = true
	l.presses++
	l.mu.Unlock()
}

// Unlock records an unlock press and drops pick and lock requests latched
// before it.
func (l *PointerLatch) Unlock() {
	l.mu.Lock()
	l.pending.UnlockPressed = true
	l.pending.PickPressed = false
	l.pending.HasLockTo = false
	l.presses++
	l.mu.Unlock()
}

// LockTo records an explicit lock request. A later request replaces an
// earlier one that has not been drained yet.
func (l *PointerLatch) LockTo(id int) {
	l.mu.Lock()
	l.pending.LockTo = id
	l.pending.HasLockTo = true
	l.presses++
	l.mu.Unlock()
}

// Apply merges a pointer message. A message carrying both flags unlocks
// and then picks at (x, y).
func (l *PointerLatch) Apply(x, y float64, pick, unlock bool) {
	p := r2.Vec{X: x, Y: y}
	if unlock {
		l.Unlock()
	}
	if pick {
		l.Pick(p)
	} else {
		l.Move(p)
	}
}

// Drain returns the accumulated input and clears the latched presses.
func (l *PointerLatch) Drain() tracking.PointerInput {
	l.mu.Lock()
	defer l.mu.Unlock()

	in := l.pending
	l.pending = tracking.PointerInput{Pointer: in.Pointer}
	return in
}

// Presses returns the number of presses latched so far.
func (l *PointerLatch) Presses() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.presses
}

var _ tracking.InputSource = (*PointerLatch)(nil)
