// Package feed provides the WebSocket hub collaborators use to push detector
// snapshots, pointer input and camera pose into the tracker.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/protocol"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
)

// writeWait bounds a single write so one stalled collaborator cannot hold
// up a broadcast.
const writeWait = 2 * time.Second

// Connection represents a connected collaborator
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the collaborator
func (c *Connection) Send(msg *protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from collaborators
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	logger *slog.Logger

	// Callbacks
	onBodies  func(connID string, bodies *protocol.BodiesData)
	onPointer func(connID string, pointer *protocol.PointerData)
	onView    func(connID string, view *protocol.ViewData) error
	onLock    func(connID string, id int)
	onUnlock  func(connID string)

	// Queued for Run to broadcast
	outbox chan *protocol.Message

	// Stats
	messagesReceived  atomic.Uint64
	messagesSent      atomic.Uint64
	snapshotsReceived atomic.Uint64
	rejected          atomic.Uint64
	outboxDropped     atomic.Uint64
}

// NewHub creates a new feed hub
func NewHub() *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		logger: log.Component("feed.hub"),
		outbox: make(chan *protocol.Message, 64),
	}
}

// SetLogger replaces the hub's logger.
func (h *Hub) SetLogger(l *slog.Logger) {
	h.logger = l
}

// OnBodies sets the callback for detector snapshots
func (h *Hub) OnBodies(callback func(connID string, bodies *protocol.BodiesData)) {
	h.mu.Lock()
	h.onBodies = callback
	h.mu.Unlock()
}

// OnPointer sets the callback for pointer input
func (h *Hub) OnPointer(callback func(connID string, pointer *protocol.PointerData)) {
	h.mu.Lock()
	h.onPointer = callback
	h.mu.Unlock()
}

// OnView sets the callback for camera updates. A returned error is sent back
// to the collaborator.
func (h *Hub) OnView(callback func(connID string, view *protocol.ViewData) error) {
	h.mu.Lock()
	h.onView = callback
	h.mu.Unlock()
}

// OnLock sets the callback for explicit lock requests
func (h *Hub) OnLock(callback func(connID string, id int)) {
	h.mu.Lock()
	h.onLock = callback
	h.mu.Unlock()
}

// OnUnlock sets the callback for explicit unlock requests
func (h *Hub) OnUnlock(callback func(connID string)) {
	h.mu.Lock()
	h.onUnlock = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/feed", websocket.New(h.handleConn))
	app.Get("/ws/feed/:id", websocket.New(h.handleConn))
}

// handleConn handles a collaborator WebSocket connection
func (h *Hub) handleConn(c *websocket.Conn) {
	// Get connection ID from path or generate one
	connID := c.Params("id")
	if connID == "" {
		connID = uuid.NewString()
	}

	conn := &Connection{
		ID:        connID,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}

	h.mu.Lock()
	h.conns[connID] = conn
	count := len(h.conns)
	h.mu.Unlock()

	h.logger.Info("feed connected", "conn", connID, "total", count)

	defer func() {
		h.mu.Lock()
		if h.conns[connID] == conn {
			delete(h.conns, connID)
		}
		count := len(h.conns)
		h.mu.Unlock()

		h.logger.Info("feed disconnected", "conn", connID, "total", count)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("feed read error", "conn", connID, "error", err)
			return
		}

		conn.mu.Lock()
		conn.LastSeen = time.Now()
		conn.mu.Unlock()

		h.messagesReceived.Add(1)
		if err := h.handleMessage(connID, data); err != nil {
			h.reject(connID, err)
		}
	}
}

// rejectError carries the type of the message that failed.
type rejectError struct {
	msgType protocol.MessageType
	err     error
}

func (e *rejectError) Error() string { return fmt.Sprintf("%s: %v", e.msgType, e.err) }
func (e *rejectError) Unwrap() error { return e.err }

func (h *Hub) reject(connID string, err error) {
	h.rejected.Add(1)
	h.logger.Debug("rejected feed message", "conn", connID, "error", err)

	var msgType protocol.MessageType
	cause := err
	var re *rejectError
	if errors.As(err, &re) {
		msgType, cause = re.msgType, re.err
	}
	msg, mErr := protocol.NewErrorMessage(msgType, cause)
	if mErr != nil {
		return
	}
	_ = h.Send(connID, msg)
}

// handleMessage processes an incoming message
func (h *Hub) handleMessage(connID string, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	h.mu.RLock()
	bodiesCb := h.onBodies
	pointerCb := h.onPointer
	viewCb := h.onView
	lockCb := h.onLock
	unlockCb := h.onUnlock
	h.mu.RUnlock()

	fail := func(err error) error {
		return &rejectError{msgType: msg.Type, err: err}
	}

	switch msg.Type {
	case protocol.TypeBodies:
		bodies, err := msg.GetBodiesData()
		if err != nil {
			return fail(err)
		}
		h.snapshotsReceived.Add(1)
		if bodiesCb != nil {
			bodiesCb(connID, bodies)
		}

	case protocol.TypePointer:
		pointer, err := msg.GetPointerData()
		if err != nil {
			return fail(err)
		}
		if pointerCb != nil {
			pointerCb(connID, pointer)
		}

	case protocol.TypeView:
		view, err := msg.GetViewData()
		if err != nil {
			return fail(err)
		}
		if viewCb != nil {
			if err := viewCb(connID, view); err != nil {
				return fail(err)
			}
		}

	case protocol.TypeLock:
		lock, err := msg.GetLockData()
		if err != nil {
			return fail(err)
		}
		if lockCb != nil {
			lockCb(connID, lock.ID)
		}

	case protocol.TypeUnlock:
		if unlockCb != nil {
			unlockCb(connID)
		}

	case protocol.TypePing:
		// Respond with pong
		if err := h.SendPong(connID, msg.Timestamp); err != nil {
			h.logger.Debug("pong failed", "conn", connID, "error", err)
		}

	default:
		return fail(errors.New("unsupported message type"))
	}
	return nil
}

// SendPong sends a pong response to a collaborator
func (h *Hub) SendPong(connID string, pingTS int64) error {
	msg, err := protocol.NewPongMessage("", pingTS, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return h.Send(connID, msg)
}

// Send sends a message to a specific collaborator
func (h *Hub) Send(connID string, msg *protocol.Message) error {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "feed not connected")
	}

	h.messagesSent.Add(1)
	return conn.Send(msg)
}

// Broadcast sends a message to all connected collaborators
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.messagesSent.Add(1)
		if err := conn.Send(msg); err != nil {
			h.logger.Debug("broadcast error", "conn", conn.ID, "error", err)
		}
	}
}

// PublishTransition queues a lock transition for every collaborator, so a
// pointer client can show what is locked. It never blocks; when the queue is
// full the transition is dropped.
func (h *Hub) PublishTransition(t tracking.Transition) {
	msg, err := protocol.NewTransitionMessage(t)
	if err != nil {
		h.logger.Warn("encode transition", "error", err)
		return
	}
	select {
	case h.outbox <- msg:
	default:
		h.outboxDropped.Add(1)
		h.logger.Debug("outbox full, dropping transition", "reason", string(t.Reason))
	}
}

// Run broadcasts queued messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbox:
			h.Broadcast(msg)
		}
	}
}

// ConnectionCount returns the number of connected collaborators
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stats contains hub statistics
type Stats struct {
	Connections       int    `json:"connections"`
	MessagesReceived  uint64 `json:"messages_received"`
	MessagesSent      uint64 `json:"messages_sent"`
	SnapshotsReceived uint64 `json:"snapshots_received"`
	Rejected          uint64 `json:"rejected"`
	OutboxDropped     uint64 `json:"outbox_dropped"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Connections:       h.ConnectionCount(),
		MessagesReceived:  h.messagesReceived.Load(),
		MessagesSent:      h.messagesSent.Load(),
		SnapshotsReceived: h.snapshotsReceived.Load(),
		Rejected:          h.rejected.Load(),
		OutboxDropped:     h.outboxDropped.Load(),
	}
}

// ConnectionInfo contains info about a connected collaborator
type ConnectionInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetConnectionInfos returns info about all connected collaborators
func (h *Hub) GetConnectionInfos() []ConnectionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(h.conns))
	for _, c := range h.conns {
		c.mu.Lock()
		infos = append(infos, ConnectionInfo{
			ID:        c.ID,
			Connected: c.Connected,
			LastSeen:  c.LastSeen,
		})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers API routes for feed inspection
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	feed := api.Group("/feed")

	feed.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"connections": h.GetConnectionInfos(),
			"count":       h.ConnectionCount(),
		})
	})

	feed.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
