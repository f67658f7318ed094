package tracking

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// State is the lock state of the engine.
type State int

const (
	Unlocked State = iota
	Locked
)

func (s State) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason explains why a transition happened.
type Reason string

const (
	ReasonPick          Reason = "pick"
	ReasonRetarget      Reason = "retarget"
	ReasonLockRequest   Reason = "lock_request"
	ReasonUnlockRequest Reason = "unlock_request"
	ReasonGraceExpired  Reason = "grace_expired"
	ReasonReattach      Reason = "reattach"
)

// Transition describes a change of state or of the selected identifier.
type Transition struct {
	From    State
	To      State
	PrevID  int // Previously selected ID, valid if HadPrev
	HadPrev bool
	ID      int // Newly selected ID, valid if To == Locked
	Reason  Reason
	At      time.Duration
}

// TransitionHandler receives transitions as they happen, on the tick goroutine.
type TransitionHandler func(Transition)

// LockState is owned by the engine. A selected ID exists iff State is Locked.
type LockState struct {
	State        State
	selected     int
	missing      bool
	missingSince time.Duration
	lastKnown    r3.Vec // Last raw head position of the target
	Mode         LockMode
	GracePeriod  time.Duration
}

// Selected returns the locked identifier.
func (l LockState) Selected() (int, bool) {
	if l.State != Locked {
		return 0, false
	}
	return l.selected, true
}

// Missing reports whether the target is absent and since when.
func (l LockState) Missing() (since time.Duration, missing bool) {
	return l.missingSince, l.missing
}

// LastKnown returns the last raw head position seen for the target.
func (l LockState) LastKnown() r3.Vec {
	return l.lastKnown
}

// acquire locks onto c, reseeding the filter and clearing the missing timer.
// Re-acquiring the current target is a no-op and reports false.
func (e *Engine) acquire(c Candidate, now time.Duration, reason Reason) bool {
	prevID, hadPrev := e.lock.Selected()
	if hadPrev && prevID == c.ID {
		return false
	}
	from := e.lock.State
	if from == Locked && reason == ReasonPick {
		reason = ReasonRetarget
	}

	e.lock.State = Locked
	e.lock.selected = c.ID
	e.lock.missing = false
	e.lock.missingSince = 0
	if usable(c) {
		e.lock.lastKnown = c.Head
		e.filter.Reset(c.Head, c.Direction)
	} else {
		// Seeded by the first usable pose
		e.lock.lastKnown = r3.Vec{}
		e.filter.Clear()
	}

	e.emit(Transition{From: from, To: Locked, PrevID: prevID, HadPrev: hadPrev, ID: c.ID, Reason: reason, At: now})
	return true
}

// release returns to Unlocked and forgets the target and the filter state.
func (e *Engine) release(now time.Duration, reason Reason) {
	prevID, hadPrev := e.lock.Selected()
	if !hadPrev {
		return
	}

	e.lock = LockState{Mode: e.config.Mode, GracePeriod: e.config.GracePeriod}
	e.filter.Clear()

	e.emit(Transition{From: Locked, To: Unlocked, PrevID: prevID, HadPrev: true, Reason: reason, At: now})
}

// follow is the Locked steady state: track the target if present, otherwise
// try to reattach, otherwise apply the hard/soft loss policy.
func (e *Engine) follow(candidates []Candidate, now time.Duration) {
	c, present := find(candidates, e.lock.selected)

	// Without a usable pose yet there is no last known position to reattach from
	if !present && e.config.ReattachEnabled && e.filter.Seeded() {
		if r, ok := e.reattach(candidates); ok {
			prevID := e.lock.selected
			e.lock.selected = r.ID
			c, present = r, true
			e.emit(Transition{From: Locked, To: Locked, PrevID: prevID, HadPrev: true, ID: r.ID, Reason: ReasonReattach, At: now})
		}
	}

	if present {
		e.lock.missing = false
		e.lock.missingSince = 0
		if !usable(c) {
			e.logger.Debug("target pose not finite", "id", c.ID)
			return
		}
		e.lock.lastKnown = c.Head
		e.filter.Update(c.Head, c.Direction, e.config.PositionSmoothing, e.config.DirectionSmoothing)
		return
	}

	// Absent: output holds, the filter is not advanced
	if !e.lock.missing {
		e.lock.missing = true
		e.lock.missingSince = now
		e.logger.Debug("target missing", "id", e.lock.selected, "mode", e.lock.Mode.String())
	}

	if e.lock.Mode == SoftLock && now-e.lock.missingSince >= e.lock.GracePeriod {
		e.release(now, ReasonGraceExpired)
	}
}

// reattach finds a body near the target's last known head position. With
// ReattachRequireNearest only the nearest such body qualifies; otherwise the
// first match in ID order wins.
func (e *Engine) reattach(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	bestDist := 0.0
	found := false

	for _, c := range candidates {
		if !skeleton.Finite(c.Head) {
			continue
		}
		d := skeleton.Distance(c.Head, e.lock.lastKnown)
		if d > e.config.ReattachMaxDistance {
			continue
		}
		if !e.config.ReattachRequireNearest {
			return c, true
		}
		if !found || d < bestDist {
			best, bestDist, found = c, d, true
		}
	}
	return best, found
}

// usable reports whether c resolved to a finite head pose.
func usable(c Candidate) bool {
	return skeleton.Finite(c.Head) && skeleton.Finite(c.Direction)
}

func (e *Engine) emit(t Transition) {
	e.logger.Info("lock transition",
		"from", t.From.String(),
		"to", t.To.String(),
		"id", t.ID,
		"prev_id", t.PrevID,
		"reason", string(t.Reason),
		"at", t.At)

	if e.onTransition != nil {
		e.onTransition(t)
	}
}
