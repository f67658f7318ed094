// Package skeleton models detected bodies and resolves a head reference
// point and facing direction from their joints.
package skeleton

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// JointID indexes a joint within a body's skeletal representation.
type JointID int

// NoJoint marks a layout slot the body format does not provide.
const NoJoint JointID = -1

// 34-joint body format indices.
const (
	Pelvis JointID = iota
	NavalSpine
	ChestSpine
	Neck
	LeftClavicle
	LeftShoulder
	LeftElbow
	LeftWrist
	LeftHand
	LeftHandTip
	LeftThumb
	RightClavicle
	RightShoulder
	RightElbow
	RightWrist
	RightHand
	RightHandTip
	RightThumb
	LeftHip
	LeftKnee
	LeftAnkle
	LeftFoot
	RightHip
	RightKnee
	RightAnkle
	RightFoot
	Head
	Nose
	LeftEye
	LeftEar
	RightEye
	RightEar
	LeftHeel
	RightHeel
)

// COCO 17-keypoint indices for the face joints (as emitted by YOLOv8-pose).
const (
	COCONose     JointID = 0
	COCOLeftEye  JointID = 1
	COCORightEye JointID = 2
	COCOLeftEar  JointID = 3
	COCORightEar JointID = 4
)

// HeadName is the joint name recognised as the head when the layout has no head index.
const HeadName = "head"

// Joint is a single named or indexed joint position in world coordinates.
type Joint struct {
	ID       JointID `json:"id"`
	Name     string  `json:"name,omitempty"`
	Position r3.Vec  `json:"position"`
}

// Body is a detected human body as delivered by the detector.
// The core never mutates it.
type Body struct {
	ID      int     `json:"id"`
	Root    r3.Vec  `json:"root"`              // Reference position (usually pelvis or ground point)
	Forward r3.Vec  `json:"forward,omitempty"` // Body's own facing axis, zero if unknown
	Joints  []Joint `json:"joints,omitempty"`
}

// Joint returns the first finite position recorded for id.
func (b Body) Joint(id JointID) (r3.Vec, bool) {
	if id == NoJoint {
		return r3.Vec{}, false
	}
	for _, j := range b.Joints {
		if j.ID == id && Finite(j.Position) {
			return j.Position, true
		}
	}
	return r3.Vec{}, false
}

// Named returns the first finite joint whose name matches (case-insensitive).
func (b Body) Named(name string) (r3.Vec, bool) {
	for _, j := range b.Joints {
		if j.Name != "" && strings.EqualFold(j.Name, name) && Finite(j.Position) {
			return j.Position, true
		}
	}
	return r3.Vec{}, false
}

// Clone returns a deep copy of the body.
func (b Body) Clone() Body {
	c := b
	if b.Joints != nil {
		c.Joints = make([]Joint, len(b.Joints))
		copy(c.Joints, b.Joints)
	}
	return c
}

// Finite reports whether every component of v is a real number.
func Finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Layout maps semantic face joints to the indices a body format uses.
type Layout struct {
	HeadKeypoints []JointID // Averaged for the head position when present
	Head          JointID
	Neck          JointID
	Nose          JointID
	LeftEye       JointID
	RightEye      JointID
}

// DefaultLayout is the 34-joint body format.
func DefaultLayout() Layout {
	return Layout{
		HeadKeypoints: []JointID{Nose, Neck, LeftEye, RightEye, LeftEar, RightEar},
		Head:          Head,
		Neck:          Neck,
		Nose:          Nose,
		LeftEye:       LeftEye,
		RightEye:      RightEye,
	}
}

// COCOLayout is the 17-keypoint COCO format. It has no neck or head joint,
// so direction comes from the eyes.
func COCOLayout() Layout {
	return Layout{
		HeadKeypoints: []JointID{COCONose, COCOLeftEye, COCORightEye, COCOLeftEar, COCORightEar},
		Head:          NoJoint,
		Neck:          NoJoint,
		Nose:          COCONose,
		LeftEye:       COCOLeftEye,
		RightEye:      COCORightEye,
	}
}

// Layout names accepted by GetLayout.
const (
	LayoutBody34 = "body34"
	LayoutCOCO   = "coco"
)

// Layouts returns the names of the known body formats.
func Layouts() []string {
	return []string{LayoutBody34, LayoutCOCO}
}

// GetLayout returns the layout for name, or nil if unknown. Names are
// case-insensitive and the empty name selects body34.
func GetLayout(name string) *Layout {
	var l Layout
	switch strings.ToLower(name) {
	case LayoutBody34, "":
		l = DefaultLayout()
	case LayoutCOCO:
		l = COCOLayout()
	default:
		return nil
	}
	return &l
}
