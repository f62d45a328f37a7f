package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// no courier.yaml next to this package
	t.Setenv("COURIER_CONFIG", "")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("COURIER_CONFIG", "")
	c, err := Load(filepath.Join("testdata", "crash.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, c.Tick)
	assert.Equal(t, 6, c.Duration)
	assert.Equal(t, 16, c.InboxCapacity)
	assert.Equal(t, 3, c.Trackers)
	assert.Equal(t, time.Second, c.TrackTimeout)
	assert.Equal(t, "report.json", c.Output)
	require.Len(t, c.Cameras, 2)
	assert.Equal(t, Camera{ID: 7, Frequency: 1, ErrorAt: 4, Objects: []Object{
		{ID: "wall_1", X: 2, Y: 0},
		{ID: "wall_2", X: 2, Y: -1.5},
	}}, c.Cameras[0])
	assert.Equal(t, Camera{ID: 8, Frequency: 3, Objects: []Object{{ID: "door_1", X: 1, Y: 1}}}, c.Cameras[1])
	assert.Equal(t, []Pose{
		{Time: 1, X: 0, Y: 0, Yaw: 0},
		{Time: 2, X: 0.5, Y: 0, Yaw: 90},
	}, c.Poses)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COURIER_CONFIG", filepath.Join("testdata", "crash.yaml"))
	t.Setenv("COURIER_DURATION", "42")
	t.Setenv("COURIER_INBOX_CAPACITY", "0")
	t.Setenv("COURIER_TICK", "1s")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, c.Duration)
	assert.Equal(t, 0, c.InboxCapacity)
	assert.Equal(t, time.Second, c.Tick)
	assert.Equal(t, 3, c.Trackers)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("COURIER_CONFIG", "")

	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)

	_, err = Load(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frequency must be positive")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"tick", func(c *Config) { c.Tick = 0 }, "tick must be positive"},
		{"duration", func(c *Config) { c.Duration = -1 }, "duration must be positive"},
		{"inbox capacity", func(c *Config) { c.InboxCapacity = -1 }, "inbox_capacity"},
		{"trackers", func(c *Config) { c.Trackers = 0 }, "at least one tracker"},
		{"track timeout", func(c *Config) { c.TrackTimeout = 0 }, "track_timeout"},
		{"no cameras", func(c *Config) { c.Cameras = nil }, "at least one camera"},
		{"duplicate camera", func(c *Config) { c.Cameras[1].ID = c.Cameras[0].ID }, "duplicate camera id"},
		{"error at", func(c *Config) { c.Cameras[0].ErrorAt = -2 }, "error_at"},
		{"object id", func(c *Config) { c.Cameras[0].Objects[0].ID = "" }, "object without id"},
		{"poses", func(c *Config) { c.Poses = []Pose{{Time: 1}, {Time: 2}} }, ""},
		{"pose time", func(c *Config) { c.Poses = []Pose{{Time: 0}} }, "pose time must be positive"},
		{"duplicate pose", func(c *Config) { c.Poses = []Pose{{Time: 3}, {Time: 3, X: 1}} }, "duplicate pose for tick 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
