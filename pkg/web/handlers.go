package web

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-targetlock/pkg/feed"
	"github.com/teslashibe/go-targetlock/pkg/hub"
	"github.com/teslashibe/go-targetlock/pkg/protocol"
	"github.com/teslashibe/go-targetlock/pkg/scene"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/viewpoint"
)

// Status is the /api/status response
type Status struct {
	Session   string            `json:"session"`
	UptimeSec float64           `json:"uptime_sec"`
	Pose      protocol.PoseData `json:"pose"`
	Scene     *scene.Stats      `json:"scene,omitempty"`
	Feed      *feed.Stats       `json:"feed,omitempty"`
	PoseHub   *hub.Stats        `json:"pose_hub,omitempty"`
	Camera    *viewpoint.Config `json:"camera,omitempty"` // Nil until a viewpoint is known
	Input     *InputStatus      `json:"input,omitempty"`
}

// InputStatus summarizes operator input.
type InputStatus struct {
	Presses uint64 `json:"presses"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"session": s.session,
	})
}

// handleMetrics exposes counters in the Prometheus text format
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	var b strings.Builder

	gauge := func(name, help string, v any) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}

	if s.deps.Port != nil {
		out := s.deps.Port.Latest()
		locked := 0
		if out.Locked {
			locked = 1
		}
		counter("targetlock_ticks", "Engine ticks", out.Tick)
		gauge("targetlock_locked", "1 while a target is locked", locked)
		gauge("targetlock_candidates", "Bodies considered on the last tick", out.Candidates)
	}
	if s.deps.Store != nil {
		st := s.deps.Store.Stats()
		counter("targetlock_scene_frames", "Detector snapshots received", st.Frames)
		gauge("targetlock_scene_tracks", "Bodies currently tracked", st.Tracks)
	}
	if s.deps.Feed != nil {
		st := s.deps.Feed.GetStats()
		gauge("targetlock_feed_connections", "Connected feed collaborators", st.Connections)
		counter("targetlock_feed_messages_received", "Feed messages received", st.MessagesReceived)
		counter("targetlock_feed_rejected", "Feed messages rejected", st.Rejected)
	}
	if s.deps.PoseHub != nil {
		st := s.deps.PoseHub.GetStats()
		gauge("targetlock_pose_clients", "Connected pose consumers", st.Clients)
		counter("targetlock_pose_sent", "Pose messages queued to consumers", st.Sent)
		counter("targetlock_pose_dropped", "Pose broadcasts dropped", st.Dropped)
	}

	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(b.String())
}

// handleStatus returns the latest pose and collaborator stats
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		Session:   s.session,
		UptimeSec: time.Since(s.started).Seconds(),
	}
	if s.deps.Port != nil {
		st.Pose = protocol.PoseFromOutput(s.deps.Port.Latest())
	}
	if s.deps.Store != nil {
		stats := s.deps.Store.Stats()
		st.Scene = &stats
	}
	if s.deps.Feed != nil {
		stats := s.deps.Feed.GetStats()
		st.Feed = &stats
	}
	if s.deps.PoseHub != nil {
		stats := s.deps.PoseHub.GetStats()
		st.PoseHub = &stats
	}
	if s.deps.View != nil && s.deps.View.Camera() != nil {
		cfg := s.deps.View.Config()
		st.Camera = &cfg
	}
	if s.deps.Latch != nil {
		st.Input = &InputStatus{Presses: s.deps.Latch.Presses()}
	}
	return c.JSON(st)
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	if s.deps.Config == nil {
		return fiber.NewError(fiber.StatusNotFound, "no configuration")
	}
	return c.JSON(s.deps.Config)
}

// handleGetTuning returns the engine's live tuning values
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	if s.deps.Runner == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "engine not running")
	}

	var params tracking.TuningParams
	err := s.exec(func(e *tracking.Engine) error {
		params = e.Tuning()
		return nil
	})
	if err != nil {
		return s.execError(err)
	}
	return c.JSON(params)
}

// handleSetTuning applies a partial tuning update and returns the result
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	if s.deps.Runner == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "engine not running")
	}

	var req tracking.TuningParams
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tuning body: "+err.Error())
	}

	var params tracking.TuningParams
	err := s.exec(func(e *tracking.Engine) error {
		if err := e.ApplyTuning(req); err != nil {
			return err
		}
		params = e.Tuning()
		return nil
	})
	if err != nil {
		return s.execError(err)
	}

	s.logger.Info("tuning updated", "mode", *params.Mode, "grace_seconds", *params.GraceSeconds)
	return c.JSON(params)
}

func (s *Server) execError(err error) error {
	switch {
	case errors.Is(err, tracking.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, tracking.ErrRunnerBusy), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

// handleLock queues an explicit lock request for the next tick
func (s *Server) handleLock(c *fiber.Ctx) error {
	if s.deps.Latch == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "input not configured")
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body id")
	}

	s.deps.Latch.LockTo(id)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": "lock", "id": id})
}

// handleUnlock queues an unlock request for the next tick
func (s *Server) handleUnlock(c *fiber.Ctx) error {
	if s.deps.Latch == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "input not configured")
	}

	s.deps.Latch.Unlock()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": "unlock"})
}

// handleScene returns the tracks the detector currently reports
func (s *Server) handleScene(c *fiber.Ctx) error {
	if s.deps.Store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "scene not configured")
	}
	return c.JSON(fiber.Map{
		"stats":  s.deps.Store.Stats(),
		"tracks": s.deps.Store.Tracks(),
	})
}

// handlePoseWS attaches a consumer to the pose hub
func (s *Server) handlePoseWS(c *websocket.Conn) {
	if s.deps.PoseHub == nil {
		c.Close()
		return
	}
	hub.NewClient(s.deps.PoseHub, c).Run()
}
