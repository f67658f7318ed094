package hub

import (
	"github.com/teslashibe/go-targetlock/pkg/protocol"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
)

// PosePublisher broadcasts engine outputs as protocol pose messages.
type PosePublisher struct {
	hub          *Hub
	onChangeOnly bool

	last    protocol.PoseData
	hasLast bool
}

// NewPosePublisher creates a publisher. With onChangeOnly, ticks whose pose
// equals the previous one (ignoring tick counter and clock) are skipped.
func NewPosePublisher(h *Hub, onChangeOnly bool) *PosePublisher {
	return &PosePublisher{hub: h, onChangeOnly: onChangeOnly}
}

// Publish implements tracking.Publisher. Called from the tick goroutine only.
func (p *PosePublisher) Publish(out tracking.Output) {
	pose := protocol.PoseFromOutput(out)

	if p.onChangeOnly && p.hasLast && samePose(p.last, pose) {
		return
	}
	p.last, p.hasLast = pose, true

	msg, err := protocol.NewMessage(protocol.TypePose, pose)
	if err == nil {
		err = p.hub.BroadcastJSON(msg)
	}
	if err != nil {
		p.hub.logger.Warn("encode pose", "error", err)
	}
}

func samePose(a, b protocol.PoseData) bool {
	a.Tick, b.Tick = 0, 0
	a.TimeMs, b.TimeMs = 0, 0
	a.MissingMs, b.MissingMs = 0, 0
	return a == b
}

var _ tracking.Publisher = (*PosePublisher)(nil)
