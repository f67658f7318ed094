package protocol

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
)

// =============================================================================
// Conversions
// =============================================================================

// FromVec converts a world vector, mapping non-finite components to 0 since
// JSON cannot carry them.
func FromVec(v r3.Vec) Vec3 {
	return Vec3{X: finite(v.X), Y: finite(v.Y), Z: finite(v.Z)}
}

// Vec converts to a world vector.
func (v Vec3) Vec() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Body converts the wire form into a skeleton body.
func (b BodyData) Body() skeleton.Body {
	body := skeleton.Body{
		ID:     b.ID,
		Root:   b.Root.Vec(),
		Joints: make([]skeleton.Joint, len(b.Joints)),
	}
	if b.Forward != nil {
		body.Forward = b.Forward.Vec()
	}
	for i, j := range b.Joints {
		body.Joints[i] = skeleton.Joint{
			ID:       skeleton.JointID(j.ID),
			Name:     j.Name,
			Position: j.Position.Vec(),
		}
	}
	return body
}

// FromBody converts a skeleton body to its wire form.
func FromBody(b skeleton.Body) BodyData {
	data := BodyData{
		ID:     b.ID,
		Root:   FromVec(b.Root),
		Joints: make([]JointData, len(b.Joints)),
	}
	if b.Forward != (r3.Vec{}) {
		fwd := FromVec(b.Forward)
		data.Forward = &fwd
	}
	for i, j := range b.Joints {
		data.Joints[i] = JointData{ID: int(j.ID), Name: j.Name, Position: FromVec(j.Position)}
	}
	return data
}

// Skeletons converts every body in the snapshot.
func (d BodiesData) Skeletons() []skeleton.Body {
	bodies := make([]skeleton.Body, len(d.Bodies))
	for i, b := range d.Bodies {
		bodies[i] = b.Body()
	}
	return bodies
}

// PoseFromOutput converts an engine output to its wire form.
func PoseFromOutput(out tracking.Output) PoseData {
	return PoseData{
		Tick:         out.Tick,
		TimeMs:       out.Now.Milliseconds(),
		State:        out.State.String(),
		Locked:       out.Locked,
		Preview:      out.Preview,
		HasSelection: out.HasSelection,
		ID:           out.SelectedID,
		Position:     FromVec(out.Position),
		Direction:    FromVec(out.Direction),
		Distance:     finite(out.Distance),
		Missing:      out.Missing,
		MissingMs:    out.MissingFor.Milliseconds(),
		Candidates:   out.Candidates,
	}
}

// TransitionFromEngine converts a lock transition to its wire form.
func TransitionFromEngine(t tracking.Transition) TransitionData {
	return TransitionData{
		From:    t.From.String(),
		To:      t.To.String(),
		ID:      t.ID,
		PrevID:  t.PrevID,
		HadPrev: t.HadPrev,
		Reason:  string(t.Reason),
		TimeMs:  t.At.Milliseconds(),
	}
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewBodiesMessage creates a detector snapshot message
func NewBodiesMessage(frame uint64, bodies []skeleton.Body) (*Message, error) {
	data := BodiesData{Frame: frame, Bodies: make([]BodyData, len(bodies))}
	for i, b := range bodies {
		data.Bodies[i] = FromBody(b)
	}
	return NewMessage(TypeBodies, data)
}

// NewPointerMessage creates a pointer message
func NewPointerMessage(x, y float64, pick, unlock bool) (*Message, error) {
	return NewMessage(TypePointer, PointerData{X: x, Y: y, Pick: pick, Unlock: unlock})
}

// NewViewMessage creates a camera pose message
func NewViewMessage(position r3.Vec, yaw, pitch float64) (*Message, error) {
	return NewMessage(TypeView, ViewData{Position: FromVec(position), Yaw: yaw, Pitch: pitch})
}

// NewLockMessage creates a lock request
func NewLockMessage(id int) (*Message, error) {
	return NewMessage(TypeLock, LockData{ID: id})
}

// NewUnlockMessage creates an unlock request
func NewUnlockMessage() (*Message, error) {
	return NewMessage(TypeUnlock, nil)
}

// NewPoseMessage creates a pose message from an engine output
func NewPoseMessage(out tracking.Output) (*Message, error) {
	return NewMessage(TypePose, PoseFromOutput(out))
}

// NewTransitionMessage creates a lock transition message
func NewTransitionMessage(t tracking.Transition) (*Message, error) {
	return NewMessage(TypeTransition, TransitionFromEngine(t))
}

// NewErrorMessage creates an error reply for a rejected message
func NewErrorMessage(rejected MessageType, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Type: rejected, Error: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetBodiesData extracts a detector snapshot from a message
func (m *Message) GetBodiesData() (*BodiesData, error) {
	var data BodiesData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPointerData extracts pointer data from a message
func (m *Message) GetPointerData() (*PointerData, error) {
	var data PointerData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetViewData extracts the camera pose from a message
func (m *Message) GetViewData() (*ViewData, error) {
	var data ViewData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLockData extracts a lock request from a message
func (m *Message) GetLockData() (*LockData, error) {
	var data LockData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPoseData extracts pose data from a message
func (m *Message) GetPoseData() (*PoseData, error) {
	var data PoseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTransitionData extracts a lock transition from a message
func (m *Message) GetTransitionData() (*TransitionData, error) {
	var data TransitionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts an error reply from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
