package tracking

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, floatTolerance)
}

func vecEquals(a, b r3.Vec) bool {
	return floatEquals(a.X, b.X) && floatEquals(a.Y, b.Y) && floatEquals(a.Z, b.Z)
}

func vec(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

// pinholeView looks down +Z from eye with focal length f around a 1280x720 screen.
type pinholeView struct {
	eye r3.Vec
	f   float64
}

func newView() *pinholeView {
	return &pinholeView{f: 500}
}

func (v *pinholeView) Position() r3.Vec { return v.eye }
func (v *pinholeView) Forward() r3.Vec  { return vec(0, 0, 1) }

func (v *pinholeView) Project(p r3.Vec) (r2.Vec, bool) {
	rel := r3.Sub(p, v.eye)
	if rel.Z <= 0 {
		return r2.Vec{}, false
	}
	return r2.Vec{X: 640 + v.f*rel.X/rel.Z, Y: 360 - v.f*rel.Y/rel.Z}, true
}

// brokenView projects everything to NaN while claiming it is in front.
type brokenView struct{ pinholeView }

func (brokenView) Project(r3.Vec) (r2.Vec, bool) {
	return r2.Vec{X: math.NaN(), Y: math.NaN()}, true
}

// bodyAt returns a body whose resolved head is exactly head.
func bodyAt(id int, head r3.Vec) skeleton.Body {
	return skeleton.Body{
		ID:   id,
		Root: r3.Sub(head, vec(0, skeleton.ApproxHeadHeight, 0)),
		Joints: []skeleton.Joint{
			{ID: skeleton.Head, Position: head},
		},
	}
}

func at(seconds float64) time.Duration {
	return Seconds(seconds)
}

func quietEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	e.SetLogger(log.Discard())
	return e
}
