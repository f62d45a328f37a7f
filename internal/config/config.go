// Package config loads the settings of the courier simulation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override settings, for
// example COURIER_DURATION=20.
const EnvPrefix = "COURIER"

// Config holds the simulation settings.
type Config struct {
	// Tick is the wall clock time between two ticks.
	Tick time.Duration `mapstructure:"tick"`
	// Duration is the number of ticks the clock publishes before it stops.
	Duration int `mapstructure:"duration"`
	// InboxCapacity bounds every worker inbox. Zero means unbounded.
	InboxCapacity int `mapstructure:"inbox_capacity"`
	// Trackers is the number of tracker workers sharing the detection load.
	Trackers int `mapstructure:"trackers"`
	// TrackTimeout is how long a tracker waits for fusion to confirm a batch.
	TrackTimeout time.Duration `mapstructure:"track_timeout"`
	// Output is the path of the JSON report. Empty writes to stdout.
	Output  string   `mapstructure:"output"`
	Cameras []Camera `mapstructure:"cameras"`
	// Poses is the trajectory of the vehicle, one pose per tick. Without poses
	// the vehicle stays at the origin; with poses, frames of a tick that has no
	// pose are not fused.
	Poses []Pose `mapstructure:"poses"`
}

// Camera describes one simulated camera.
type Camera struct {
	ID int `mapstructure:"id"`
	// Frequency: the camera takes a frame on every tick that is a multiple of it.
	Frequency int `mapstructure:"frequency"`
	// ErrorAt is the tick at which the camera fails. Zero never fails.
	ErrorAt int      `mapstructure:"error_at"`
	Objects []Object `mapstructure:"objects"`
}

// Object is something a camera sees, in coordinates relative to the vehicle.
type Object struct {
	ID string  `mapstructure:"id" json:"id"`
	X  float64 `mapstructure:"x" json:"x"`
	Y  float64 `mapstructure:"y" json:"y"`
}

// Pose is the position of the vehicle at a tick. Yaw is in degrees.
type Pose struct {
	Time int     `mapstructure:"time" json:"time"`
	X    float64 `mapstructure:"x" json:"x"`
	Y    float64 `mapstructure:"y" json:"y"`
	Yaw  float64 `mapstructure:"yaw" json:"yaw"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Tick:         100 * time.Millisecond,
		Duration:     10,
		Trackers:     2,
		TrackTimeout: time.Second,
		Cameras: []Camera{
			{ID: 1, Frequency: 1, Objects: []Object{
				{ID: "wall_1", X: 2, Y: 0},
				{ID: "door_1", X: 1.5, Y: 1},
			}},
			{ID: 2, Frequency: 2, Objects: []Object{
				{ID: "door_1", X: 1.5, Y: 1},
				{ID: "chair_1", X: 3, Y: -1},
				{ID: "table_1", X: 4, Y: 0.5},
			}},
		},
	}
}

// Load reads the configuration from path, or from courier.{yaml,json,toml} in
// the working directory when path is empty, and applies COURIER_* environment
// overrides. A missing default file is not an error; a missing explicit one is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("courier")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("tick", d.Tick)
	v.SetDefault("duration", d.Duration)
	v.SetDefault("inbox_capacity", d.InboxCapacity)
	v.SetDefault("trackers", d.Trackers)
	v.SetDefault("track_timeout", d.TrackTimeout)
	v.SetDefault("output", d.Output)

	cameras := make([]map[string]any, 0, len(d.Cameras))
	for _, c := range d.Cameras {
		objects := make([]map[string]any, 0, len(c.Objects))
		for _, o := range c.Objects {
			objects = append(objects, map[string]any{"id": o.ID, "x": o.X, "y": o.Y})
		}
		cameras = append(cameras, map[string]any{
			"id":        c.ID,
			"frequency": c.Frequency,
			"error_at":  c.ErrorAt,
			"objects":   objects,
		})
	}
	v.SetDefault("cameras", cameras)

	if len(d.Poses) > 0 {
		poses := make([]map[string]any, 0, len(d.Poses))
		for _, p := range d.Poses {
			poses = append(poses, map[string]any{"time": p.Time, "x": p.X, "y": p.Y, "yaw": p.Yaw})
		}
		v.SetDefault("poses", poses)
	}
}

// Validate reports the first setting that cannot drive a simulation.
func (c Config) Validate() error {
	switch {
	case c.Tick <= 0:
		return fmt.Errorf("config: tick must be positive, got %s", c.Tick)
	case c.Duration <= 0:
		return fmt.Errorf("config: duration must be positive, got %d", c.Duration)
	case c.InboxCapacity < 0:
		return fmt.Errorf("config: inbox_capacity must not be negative, got %d", c.InboxCapacity)
	case c.Trackers <= 0:
		return fmt.Errorf("config: at least one tracker is required, got %d", c.Trackers)
	case c.TrackTimeout <= 0:
		return fmt.Errorf("config: track_timeout must be positive, got %s", c.TrackTimeout)
	case len(c.Cameras) == 0:
		return errors.New("config: at least one camera is required")
	}

	seen := make(map[int]bool, len(c.Cameras))
	for _, cam := range c.Cameras {
		if seen[cam.ID] {
			return fmt.Errorf("config: duplicate camera id %d", cam.ID)
		}
		seen[cam.ID] = true
		if cam.Frequency <= 0 {
			return fmt.Errorf("config: camera %d: frequency must be positive, got %d", cam.ID, cam.Frequency)
		}
		if cam.ErrorAt < 0 {
			return fmt.Errorf("config: camera %d: error_at must not be negative, got %d", cam.ID, cam.ErrorAt)
		}
		for _, o := range cam.Objects {
			if o.ID == "" {
				return fmt.Errorf("config: camera %d: object without id", cam.ID)
			}
		}
	}

	times := make(map[int]bool, len(c.Poses))
	for _, p := range c.Poses {
		if p.Time <= 0 {
			return fmt.Errorf("config: pose time must be positive, got %d", p.Time)
		}
		if times[p.Time] {
			return fmt.Errorf("config: duplicate pose for tick %d", p.Time)
		}
		times[p.Time] = true
	}
	return nil
}
