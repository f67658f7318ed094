// Package web serves the targetlock HTTP API and pose stream.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/feed"
	"github.com/teslashibe/go-targetlock/pkg/hub"
	"github.com/teslashibe/go-targetlock/pkg/scene"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/viewpoint"
)

// DefaultExecTimeout bounds how long a request waits for the tick goroutine.
const DefaultExecTimeout = 2 * time.Second

// Deps are the collaborators the server exposes. Nil members disable
// the routes that need them.
type Deps struct {
	Runner  *tracking.Runner
	Port    *tracking.Port
	Store   *scene.Store
	Latch   *feed.PointerLatch
	View    *viewpoint.Holder
	Feed    *feed.Hub
	PoseHub *hub.Hub

	// Config is served as-is at /api/config
	Config any

	// AccessLog enables the fiber request logger
	AccessLog bool
}

// Server is the targetlock HTTP/WS server
type Server struct {
	app  *fiber.App
	addr string
	deps Deps

	session     string
	started     time.Time
	execTimeout time.Duration
	logger      *slog.Logger
}

// NewServer creates a new server listening on addr once started
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		addr:        addr,
		deps:        deps,
		session:     uuid.NewString(),
		started:     time.Now(),
		execTimeout: DefaultExecTimeout,
		logger:      log.Component("web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "targetlock",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/lock/:id", s.handleLock)
	api.Post("/unlock", s.handleUnlock)
	api.Get("/scene", s.handleScene)
	if deps.Feed != nil {
		deps.Feed.RegisterAPIRoutes(api)
		// Inbound collaborator websocket
		deps.Feed.RegisterRoutes(app)
	}

	// Outbound pose stream
	app.Use("/ws/pose", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pose", websocket.New(s.handlePoseWS))

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Session returns the identifier of this server instance
func (s *Server) Session() string {
	return s.session
}

// SetLogger replaces the server's logger.
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Start starts the pose hub and blocks serving HTTP until ctx is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("🌐 listening", "addr", s.addr, "session", s.session)

	if s.deps.PoseHub != nil && !s.deps.PoseHub.IsRunning() {
		go s.deps.PoseHub.Run(ctx)
	}
	if s.deps.Feed != nil {
		go s.deps.Feed.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(s.addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// exec runs fn on the tick goroutine with the request timeout.
func (s *Server) exec(fn func(*tracking.Engine) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.execTimeout)
	defer cancel()
	return s.deps.Runner.Exec(ctx, fn)
}
