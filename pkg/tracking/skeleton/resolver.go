package skeleton

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// ApproxHeadHeight is the offset above the body root used when no joint
	// can stand in for the head.
	ApproxHeadHeight = 1.6

	// minDirectionLen2 is the squared length below which a neck→nose vector
	// is considered degenerate.
	minDirectionLen2 = 1e-6
)

var (
	// WorldUp is the vertical axis of the scene.
	WorldUp = r3.Vec{X: 0, Y: 1, Z: 0}

	// WorldForward is used when a body reports no facing axis.
	WorldForward = r3.Vec{X: 0, Y: 0, Z: 1}
)

// Resolver computes the head reference pose of a body. It is a pure function
// of the joints it is given; missing joints fall through to the next rule.
type Resolver struct {
	Layout Layout
	inHead map[JointID]bool
}

// NewResolver creates a resolver for the given joint layout.
func NewResolver(layout Layout) *Resolver {
	inHead := make(map[JointID]bool, len(layout.HeadKeypoints))
	for _, id := range layout.HeadKeypoints {
		if id != NoJoint {
			inHead[id] = true
		}
	}
	return &Resolver{Layout: layout, inHead: inHead}
}

// Pose returns the head position and facing direction of b.
func (r *Resolver) Pose(b Body) (position, direction r3.Vec) {
	return r.Head(b), r.Direction(b)
}

// Head resolves the head position:
//  1. mean of the configured head keypoints that are present
//  2. the head joint (layout index or a joint named "head")
//  3. the highest joint
//  4. root raised by ApproxHeadHeight
func (r *Resolver) Head(b Body) r3.Vec {
	var sum r3.Vec
	n := 0
	for _, j := range b.Joints {
		if r.inHead[j.ID] && Finite(j.Position) {
			sum = r3.Add(sum, j.Position)
			n++
		}
	}
	if n > 0 {
		return r3.Scale(1/float64(n), sum)
	}

	if p, ok := b.Joint(r.Layout.Head); ok {
		return p
	}
	if p, ok := b.Named(HeadName); ok {
		return p
	}

	top, found := r3.Vec{}, false
	for _, j := range b.Joints {
		if !Finite(j.Position) {
			continue
		}
		if !found || j.Position.Y > top.Y {
			top, found = j.Position, true
		}
	}
	if found {
		return top
	}

	return r3.Add(b.Root, r3.Scale(ApproxHeadHeight, WorldUp))
}

// Direction resolves the facing direction as a unit vector:
//  1. neck → nose
//  2. (right eye − left eye) × up
//  3. the body's own forward axis
func (r *Resolver) Direction(b Body) r3.Vec {
	neck, okNeck := b.Joint(r.Layout.Neck)
	nose, okNose := b.Joint(r.Layout.Nose)
	if okNeck && okNose {
		v := r3.Sub(nose, neck)
		if r3.Norm2(v) > minDirectionLen2 {
			return r3.Unit(v)
		}
	}

	left, okLeft := b.Joint(r.Layout.LeftEye)
	right, okRight := b.Joint(r.Layout.RightEye)
	if okLeft && okRight {
		across := r3.Sub(right, left)
		if r3.Norm2(across) > 0 {
			facing := r3.Cross(r3.Unit(across), WorldUp)
			if r3.Norm2(facing) > minDirectionLen2 {
				return r3.Unit(facing)
			}
		}
	}

	return BodyForward(b)
}

// BodyForward returns the unit forward axis of b, or WorldForward when the
// body reports none.
func BodyForward(b Body) r3.Vec {
	if Finite(b.Forward) && r3.Norm2(b.Forward) > 0 {
		return r3.Unit(b.Forward)
	}
	return WorldForward
}

// Distance returns the euclidean distance between two points.
func Distance(a, b r3.Vec) float64 {
	d := r3.Norm(r3.Sub(a, b))
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}
