package tracking

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// PointerInput is the operator input gathered since the previous tick.
type PointerInput struct {
	Pointer       r2.Vec // Current pointer position in pixels
	PickPressed   bool   // A pick was requested at PickAt
	PickAt        r2.Vec // Where the pick was pressed, valid if PickPressed
	UnlockPressed bool   // An unlock was requested
	LockTo        int    // Explicit lock request, valid if HasLockTo
	HasLockTo     bool
}

// Input is the read-only snapshot the host hands to the engine each tick.
type Input struct {
	Now    time.Duration // Monotonic time since the host started
	Bodies []skeleton.Body
	View   Viewpoint
	PointerInput
}

// Engine is the target acquisition and lock-state engine. It is not safe for
// concurrent use: the host calls Tick from a single goroutine and never
// overlaps calls.
type Engine struct {
	config   Config
	resolver *skeleton.Resolver
	filter   *Filter
	lock     LockState

	candidates []Candidate // This tick's candidates
	output     Output
	ticks      uint64

	onTransition TransitionHandler
	logger       *slog.Logger
}

// NewEngine creates an engine. Invalid configurations are rejected here so
// that nothing is discovered mid-tick.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	return &Engine{
		config:   config,
		resolver: skeleton.NewResolver(config.Layout),
		filter:   NewFilter(config.DeadZone),
		lock:     LockState{Mode: config.Mode, GracePeriod: config.GracePeriod},
		logger:   log.Component("tracking.engine"),
	}, nil
}

// SetTransitionHandler sets the callback invoked on every transition.
func (e *Engine) SetTransitionHandler(h TransitionHandler) {
	e.onTransition = h
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Config returns the active configuration including runtime tuning.
func (e *Engine) Config() Config {
	return e.config
}

// Tick advances the engine by one frame and returns the output snapshot.
// Within a tick the order is: unlock, pick, explicit lock, steady state.
func (e *Engine) Tick(in Input) Output {
	e.ticks++
	now := in.Now

	candidates := BuildCandidates(in.Bodies, e.resolver, in.View)
	e.candidates = candidates

	if in.UnlockPressed {
		e.release(now, ReasonUnlockRequest)
	}

	acquired := false
	if in.PickPressed {
		if id, ok := Pick(in.PickAt, candidates, e.config.PickRadius, e.config.MaxPickDistance); ok {
			c, _ := find(candidates, id)
			acquired = e.acquire(c, now, ReasonPick)
		} else {
			e.logger.Debug("pick missed", "x", in.PickAt.X, "y", in.PickAt.Y, "candidates", len(candidates))
		}
	}

	if in.HasLockTo {
		if c, ok := find(candidates, in.LockTo); ok {
			acquired = e.acquire(c, now, ReasonLockRequest) || acquired
		} else {
			e.logger.Debug("lock request for absent body", "id", in.LockTo)
		}
	}

	if e.lock.State == Locked && !acquired {
		e.follow(candidates, now)
	}

	e.output = e.buildOutput(in, candidates)
	return e.output
}

func (e *Engine) buildOutput(in Input, candidates []Candidate) Output {
	out := Output{
		Tick:       e.ticks,
		Now:        in.Now,
		State:      e.lock.State,
		Candidates: len(candidates),
	}

	if id, ok := e.lock.Selected(); ok {
		pos, dir := e.filter.Pose()
		out.Locked = true
		out.HasSelection = true
		out.SelectedID = id
		out.Position = pos
		out.Direction = dir
		if in.View != nil {
			out.Distance = skeleton.Distance(pos, in.View.Position())
		}
		if since, missing := e.lock.Missing(); missing {
			out.Missing = true
			out.MissingFor = in.Now - since
		}
		return out
	}

	if !e.config.AutoPreview {
		return out
	}

	// Unlocked: preview the nearest body without touching the filter
	if id, ok := Nearest(candidates); ok {
		c, _ := find(candidates, id)
		out.Preview = true
		out.HasSelection = true
		out.SelectedID = c.ID
		out.Position = c.Head
		out.Direction = c.Direction
		out.Distance = c.Distance
	}
	return out
}

// Output returns the snapshot produced by the last Tick.
func (e *Engine) Output() Output {
	return e.output
}

// Candidates returns the candidates built during the last Tick.
func (e *Engine) Candidates() []Candidate {
	out := make([]Candidate, len(e.candidates))
	copy(out, e.candidates)
	return out
}

// LockState returns a copy of the lock state.
func (e *Engine) LockState() LockState {
	return e.lock
}

// SelectedID returns the selected identifier. While unlocked this is the
// preview selection, if any.
func (e *Engine) SelectedID() (int, bool) {
	return e.output.SelectedID, e.output.HasSelection
}

// HeadPose returns the output head position and direction.
func (e *Engine) HeadPose() (r3.Vec, r3.Vec) {
	return e.output.Position, e.output.Direction
}

// IsLocked reports whether a target is locked.
func (e *Engine) IsLocked() bool {
	return e.lock.State == Locked
}
