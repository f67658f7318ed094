// Package config loads go-targetlock service configuration from file and env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-targetlock/pkg/scene"
	"github.com/teslashibe/go-targetlock/pkg/tracking"
	"github.com/teslashibe/go-targetlock/pkg/tracking/skeleton"
	"github.com/teslashibe/go-targetlock/pkg/viewpoint"
)

// EnvPrefix prefixes every environment override, e.g. TARGETLOCK_ENGINE_MODE.
const EnvPrefix = "TARGETLOCK"

// Config holds service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Engine EngineConfig `mapstructure:"engine"`
	Runner RunnerConfig `mapstructure:"runner"`
	Camera CameraConfig `mapstructure:"camera"`
	Scene  scene.Config `mapstructure:"scene"`
}

// ServerConfig holds HTTP and logging settings.
type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	LogLevel     string `mapstructure:"log_level"`
	PoseOnChange bool   `mapstructure:"pose_on_change"` // Only stream poses that differ from the last one
}

// EngineConfig mirrors tracking.Config in file-friendly units.
// Unset fields take the value of the selected preset.
type EngineConfig struct {
	Preset string `mapstructure:"preset"`

	PickRadius      float64 `mapstructure:"pick_radius"`
	MaxPickDistance float64 `mapstructure:"max_pick_distance"`

	ReattachEnabled        bool    `mapstructure:"reattach_enabled"`
	ReattachMaxDistance    float64 `mapstructure:"reattach_max_distance"`
	ReattachRequireNearest bool    `mapstructure:"reattach_require_nearest"`

	Mode        string        `mapstructure:"mode"`
	GracePeriod time.Duration `mapstructure:"grace_period"`

	PositionSmoothing  float64 `mapstructure:"position_smoothing"`
	DirectionSmoothing float64 `mapstructure:"direction_smoothing"`
	DeadZone           float64 `mapstructure:"dead_zone"`

	AutoPreview bool `mapstructure:"auto_preview"`

	// Layout is the detector's joint format: "body34" or "coco"
	Layout string `mapstructure:"layout"`
	// HeadKeypoints replaces the layout's head keypoints when non-empty
	HeadKeypoints []int `mapstructure:"head_keypoints"`
}

// RunnerConfig holds tick loop settings.
type RunnerConfig struct {
	Rate float64 `mapstructure:"rate"` // Ticks per second
}

// CameraConfig describes the viewpoint. Without Static the service waits
// for view messages from the feed.
type CameraConfig struct {
	Preset string  `mapstructure:"preset"`
	Width  int     `mapstructure:"width"`
	Height int     `mapstructure:"height"`
	HFOV   float64 `mapstructure:"hfov"`
	Near   float64 `mapstructure:"near"`

	Static bool    `mapstructure:"static"`
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Z      float64 `mapstructure:"z"`
	Yaw    float64 `mapstructure:"yaw"`   // Degrees
	Pitch  float64 `mapstructure:"pitch"` // Degrees
}

// Load reads configuration from file and env. The file is taken from
// TARGETLOCK_CONFIG, or targetlock.{toml,yaml,json} in the working directory.
// Env var overrides use prefix TARGETLOCK_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.pose_on_change", false)
	v.SetDefault("engine.preset", tracking.PresetDefault)
	v.SetDefault("engine.layout", skeleton.LayoutBody34)
	v.SetDefault("engine.head_keypoints", []int{})
	v.SetDefault("runner.rate", 30.0)
	v.SetDefault("camera.preset", viewpoint.PresetDefault)
	v.SetDefault("camera.static", false)
	for _, key := range []string{"x", "y", "z", "yaw", "pitch"} {
		v.SetDefault("camera."+key, 0.0)
	}

	sc := scene.DefaultConfig()
	v.SetDefault("scene.stale_after", sc.StaleAfter)
	v.SetDefault("scene.forget_timeout", sc.ForgetTimeout)

	if cfgPath := os.Getenv(EnvPrefix + "_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("targetlock")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	// Preset values become the defaults for everything left unset
	preset := v.GetString("engine.preset")
	base := tracking.GetPreset(preset)
	if base == nil {
		return Config{}, fmt.Errorf("%w: unknown engine preset %q", tracking.ErrInvalidConfig, preset)
	}
	setEngineDefaults(v, *base)

	camPreset := v.GetString("camera.preset")
	cam := viewpoint.GetPreset(camPreset)
	if cam == nil {
		return Config{}, fmt.Errorf("unknown camera preset %q", camPreset)
	}
	v.SetDefault("camera.width", cam.Width)
	v.SetDefault("camera.height", cam.Height)
	v.SetDefault("camera.hfov", cam.HFOV)
	v.SetDefault("camera.near", cam.Near)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setEngineDefaults(v *viper.Viper, base tracking.Config) {
	v.SetDefault("engine.pick_radius", base.PickRadius)
	v.SetDefault("engine.max_pick_distance", base.MaxPickDistance)
	v.SetDefault("engine.reattach_enabled", base.ReattachEnabled)
	v.SetDefault("engine.reattach_max_distance", base.ReattachMaxDistance)
	v.SetDefault("engine.reattach_require_nearest", base.ReattachRequireNearest)
	v.SetDefault("engine.mode", base.Mode.String())
	v.SetDefault("engine.grace_period", base.GracePeriod)
	v.SetDefault("engine.position_smoothing", base.PositionSmoothing)
	v.SetDefault("engine.direction_smoothing", base.DirectionSmoothing)
	v.SetDefault("engine.dead_zone", base.DeadZone)
	v.SetDefault("engine.auto_preview", base.AutoPreview)
}

// Tracking converts the engine section to a validated tracking.Config.
func (e EngineConfig) Tracking() (tracking.Config, error) {
	base := tracking.GetPreset(e.Preset)
	if base == nil {
		return tracking.Config{}, fmt.Errorf("%w: unknown engine preset %q", tracking.ErrInvalidConfig, e.Preset)
	}
	cfg := *base

	mode, err := tracking.ParseLockMode(e.Mode)
	if err != nil {
		return tracking.Config{}, err
	}

	layout := skeleton.GetLayout(e.Layout)
	if layout == nil {
		return tracking.Config{}, fmt.Errorf("%w: unknown layout %q (want one of %s)",
			tracking.ErrInvalidConfig, e.Layout, strings.Join(skeleton.Layouts(), ", "))
	}
	if len(e.HeadKeypoints) > 0 {
		layout.HeadKeypoints = make([]skeleton.JointID, len(e.HeadKeypoints))
		for i, id := range e.HeadKeypoints {
			layout.HeadKeypoints[i] = skeleton.JointID(id)
		}
	}

	cfg.PickRadius = e.PickRadius
	cfg.MaxPickDistance = e.MaxPickDistance
	cfg.ReattachEnabled = e.ReattachEnabled
	cfg.ReattachMaxDistance = e.ReattachMaxDistance
	cfg.ReattachRequireNearest = e.ReattachRequireNearest
	cfg.Mode = mode
	cfg.GracePeriod = e.GracePeriod
	cfg.PositionSmoothing = e.PositionSmoothing
	cfg.DirectionSmoothing = e.DirectionSmoothing
	cfg.DeadZone = e.DeadZone
	cfg.AutoPreview = e.AutoPreview
	cfg.Layout = *layout

	if err := cfg.Validate(); err != nil {
		return tracking.Config{}, err
	}
	return cfg, nil
}

// Interval returns the tick period.
func (r RunnerConfig) Interval() (time.Duration, error) {
	if r.Rate <= 0 || r.Rate > 1000 {
		return 0, fmt.Errorf("runner rate %v out of range (0,1000]", r.Rate)
	}
	return time.Duration(float64(time.Second) / r.Rate), nil
}

// Viewpoint returns the camera intrinsics.
func (c CameraConfig) Viewpoint() (viewpoint.Config, error) {
	cfg := viewpoint.Config{Width: c.Width, Height: c.Height, HFOV: c.HFOV, Near: c.Near}
	if errs := cfg.Validate(); len(errs) > 0 {
		return viewpoint.Config{}, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Pose returns the static camera position and orientation in radians.
func (c CameraConfig) Pose() (r3.Vec, float64, float64) {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}, viewpoint.Radians(c.Yaw), viewpoint.Radians(c.Pitch)
}
