package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// BodySource supplies the detector's current body list.
type BodySource interface {
	Bodies(now time.Time) []skeleton.Body
}

// InputSource supplies operator input accumulated since the last call.
type InputSource interface {
	Drain() PointerInput
}

// ViewSource supplies the current viewpoint, or nil if none is known yet.
type ViewSource interface {
	Viewpoint() Viewpoint
}

// Publisher receives every tick's output.
type Publisher interface {
	Publish(Output)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Output)

// Publish calls f(out).
func (f PublisherFunc) Publish(out Output) { f(out) }

// ErrRunnerBusy is returned when the command queue is full.
var ErrRunnerBusy = errors.New("tracking runner busy")

const (
	commandPending int32 = iota
	commandRunning
	commandAbandoned
)

// command is claimed exactly once: by Run to execute it, or by Exec when
// the caller gives up first.
type command struct {
	fn    func(*Engine) error
	reply chan error
	state atomic.Int32
}

// Runner drives the engine from a ticker. It is the only goroutine that
// touches the engine; other goroutines go through Exec.
type Runner struct {
	engine   *Engine
	interval time.Duration

	bodies     BodySource
	input      InputSource
	view       ViewSource
	publishers []Publisher

	commands chan *command
	logger   *slog.Logger
	start    time.Time
	now      func() time.Time
}

// NewRunner creates a runner ticking every interval.
func NewRunner(engine *Engine, interval time.Duration, bodies BodySource, input InputSource, view ViewSource) *Runner {
	return &Runner{
		engine:   engine,
		interval: interval,
		bodies:   bodies,
		input:    input,
		view:     view,
		commands: make(chan *command, 16),
		logger:   log.Component("tracking.runner"),
		now:      time.Now,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *slog.Logger) {
	r.logger = l
}

// AddPublisher registers a consumer of every tick's output.
func (r *Runner) AddPublisher(p Publisher) {
	r.publishers = append(r.publishers, p)
}

// Exec runs fn on the tick goroutine between ticks and returns its error.
// If ctx ends before fn has started, fn never runs and ctx.Err() is
// returned. Once fn has started Exec waits for it to finish.
func (r *Runner) Exec(ctx context.Context, fn func(*Engine) error) error {
	cmd := &command{fn: fn, reply: make(chan error, 1)}

	select {
	case r.commands <- cmd:
	default:
		return ErrRunnerBusy
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		if cmd.state.CompareAndSwap(commandPending, commandAbandoned) {
			return ctx.Err()
		}
		return <-cmd.reply
	}
}

// Run ticks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.start = r.now()
	r.logger.Info("runner started",
		"interval", r.interval,
		"mode", r.engine.Config().Mode.String(),
		"grace", r.engine.Config().GracePeriod)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopped")
			return

		case cmd := <-r.commands:
			if !cmd.state.CompareAndSwap(commandPending, commandRunning) {
				r.logger.Debug("skipping abandoned command")
				continue
			}
			cmd.reply <- cmd.fn(r.engine)

		case <-ticker.C:
			r.Step()
		}
	}
}

// Step gathers one snapshot from the collaborators and advances the engine.
func (r *Runner) Step() Output {
	wall := r.now()
	if r.start.IsZero() {
		r.start = wall
	}

	in := Input{Now: wall.Sub(r.start)}
	if r.bodies != nil {
		in.Bodies = r.bodies.Bodies(wall)
	}
	if r.view != nil {
		in.View = r.view.Viewpoint()
	}
	if r.input != nil {
		in.PointerInput = r.input.Drain()
	}

	out := r.engine.Tick(in)
	for _, p := range r.publishers {
		p.Publish(out)
	}
	return out
}
