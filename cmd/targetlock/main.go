// targetlock: locks onto a picked body and streams its smoothed head pose.
// Detector, pointer and camera collaborators connect over /ws/feed;
// consumers read poses from /ws/pose.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-targetlock/internal/config"
	"github.com/teslashibe/go-targetlock/internal/log"
	"github.com/teslashibe/go-targetlock/pkg/feed"
	"github.com/teslashibe/go-targetlock/pkg/hub"
	"github.com/teslashibe/go-targetlock/pkg/scene"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/viewpoint"
	"github.com/teslashibe/go-targetlock/pkg/web"
)

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Config file (overrides TARGETLOCK_CONFIG)")
	addr       = flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	debug      = flag.Bool("debug", false, "Enable debug logging and access logs")
)

func main() {
	flag.Parse()

	if *configPath != "" {
		os.Setenv(config.EnvPrefix+"_CONFIG", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if *debug {
		cfg.Server.LogLevel = "debug"
	}
	log.Init(cfg.Server.LogLevel)

	fmt.Println()
	fmt.Println("🎯 targetlock v" + version)
	fmt.Println()

	if err := run(cfg); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}

	log.Info("✅ Goodbye!")
}

func run(cfg config.Config) error {
	trackingCfg, err := cfg.Engine.Tracking()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	interval, err := cfg.Runner.Interval()
	if err != nil {
		return fmt.Errorf("runner config: %w", err)
	}
	camCfg, err := cfg.Camera.Viewpoint()
	if err != nil {
		return fmt.Errorf("camera config: %w", err)
	}

	// Collaborators written by the feed, read by the runner
	store := scene.New(cfg.Scene)
	latch := feed.NewPointerLatch()
	view := viewpoint.NewHolder(camCfg)
	if cfg.Camera.Static {
		pos, yaw, pitch := cfg.Camera.Pose()
		if err := view.Update(pos, yaw, pitch); err != nil {
			return fmt.Errorf("static camera: %w", err)
		}
	}

	feedHub := feed.NewHub()
	feedHub.Bind(store, latch, view)

	engine, err := tracking.NewEngine(trackingCfg)
	if err != nil {
		return err
	}
	engine.SetTransitionHandler(func(t tracking.Transition) {
		feedHub.PublishTransition(t)
		switch {
		case t.To == tracking.Locked && t.HadPrev:
			fmt.Printf("🔁 %v  body %d → %d (%s)\n", t.At.Round(time.Millisecond), t.PrevID, t.ID, t.Reason)
		case t.To == tracking.Locked:
			fmt.Printf("🔒 %v  locked on body %d (%s)\n", t.At.Round(time.Millisecond), t.ID, t.Reason)
		default:
			fmt.Printf("🔓 %v  released body %d (%s)\n", t.At.Round(time.Millisecond), t.PrevID, t.Reason)
		}
	})

	port := tracking.NewPort()
	poses := hub.New("pose")

	runner := tracking.NewRunner(engine, interval, store, latch, view)
	runner.AddPublisher(port)
	runner.AddPublisher(hub.NewPosePublisher(poses, cfg.Server.PoseOnChange))

	server := web.NewServer(cfg.Server.Addr, web.Deps{
		Runner:    runner,
		Port:      port,
		Store:     store,
		Latch:     latch,
		View:      view,
		Feed:      feedHub,
		PoseHub:   poses,
		Config:    cfg,
		AccessLog: cfg.Server.LogLevel == "debug",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runner.Run(ctx)

	log.Info("🚀 ready",
		"feed", "ws://"+hostPort(cfg.Server.Addr)+"/ws/feed",
		"pose", "ws://"+hostPort(cfg.Server.Addr)+"/ws/pose",
		"mode", trackingCfg.Mode.String(),
		"rate", cfg.Runner.Rate,
		"static_camera", cfg.Camera.Static)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("👋 Shutting down...")
	return nil
}

// hostPort turns ":8090" into "localhost:8090" for display.
func hostPort(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
