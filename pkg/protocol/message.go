// Package protocol defines the WebSocket message types exchanged between the
// tracker and its collaborators: the body detector, the pointer/camera client
// and pose consumers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Collaborator → tracker messages
	TypeBodies  MessageType = "bodies"  // Detector snapshot
	TypePointer MessageType = "pointer" // Pointer position and button edges
	TypeView    MessageType = "view"    // Camera pose and intrinsics
	TypeLock    MessageType = "lock"    // Explicit lock request
	TypeUnlock  MessageType = "unlock"  // Explicit unlock request

	// Tracker → consumer messages
	TypePose       MessageType = "pose"       // Per-tick output
	TypeTransition MessageType = "transition" // Lock state change
	TypeError      MessageType = "error"      // Rejected inbound message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Shared types
// =============================================================================

// Vec3 is a world-space point or direction in meters.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// =============================================================================
// Collaborator → Tracker Message Types
// =============================================================================

// JointData is one joint of a detected body.
type JointData struct {
	ID       int    `json:"id"`
	Name     string `json:"name,omitempty"`
	Position Vec3   `json:"p"`
}

// BodyData is one detected body.
type BodyData struct {
	ID      int         `json:"id"`
	Root    Vec3        `json:"root"`
	Forward *Vec3       `json:"forward,omitempty"` // Omitted if the detector has no body axis
	Joints  []JointData `json:"joints"`
}

// BodiesData is a full detector snapshot. It replaces the previous one.
type BodiesData struct {
	Frame  uint64     `json:"frame,omitempty"`
	Bodies []BodyData `json:"bodies"`
}

// PointerData carries the pointer position in pixels and the button edges
// observed since the previous message.
type PointerData struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Pick   bool    `json:"pick,omitempty"`   // Pick button pressed
	Unlock bool    `json:"unlock,omitempty"` // Unlock button pressed
}

// ViewData is the camera pose. Intrinsics are optional and keep their
// previous values when zero.
type ViewData struct {
	Position Vec3    `json:"position"`
	Yaw      float64 `json:"yaw"`   // Radians about +Y, 0 looks down +Z
	Pitch    float64 `json:"pitch"` // Radians, positive looks up

	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	HFOV   float64 `json:"hfov,omitempty"` // Degrees
}

// LockData requests a lock onto a specific body ID.
type LockData struct {
	ID int `json:"id"`
}

// =============================================================================
// Tracker → Consumer Message Types
// =============================================================================

// PoseData is the engine output for one tick.
type PoseData struct {
	Tick         uint64  `json:"tick"`
	TimeMs       int64   `json:"time_ms"` // Engine clock
	State        string  `json:"state"`   // "locked" or "unlocked"
	Locked       bool    `json:"locked"`
	Preview      bool    `json:"preview"`
	HasSelection bool    `json:"has_selection"`
	ID           int     `json:"id"` // Valid if HasSelection
	Position     Vec3    `json:"position"`
	Direction    Vec3    `json:"direction"`
	Distance     float64 `json:"distance"`
	Missing      bool    `json:"missing"`
	MissingMs    int64   `json:"missing_ms,omitempty"`
	Candidates   int     `json:"candidates"`
}

// TransitionData reports a lock state change or a change of target.
type TransitionData struct {
	From    string `json:"from"` // "locked" or "unlocked"
	To      string `json:"to"`
	ID      int    `json:"id"`                // Valid if To is "locked"
	PrevID  int    `json:"prev_id,omitempty"` // Valid if HadPrev
	HadPrev bool   `json:"had_prev"`
	Reason  string `json:"reason"`
	TimeMs  int64  `json:"time_ms"` // Engine clock
}

// ErrorData reports why an inbound message was rejected.
type ErrorData struct {
	Type  MessageType `json:"type,omitempty"` // Type of the rejected message
	Error string      `json:"error"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
