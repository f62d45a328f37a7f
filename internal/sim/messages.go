package sim

import (
	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
)

// Role identifies what kind of worker published a notification.
type Role string

const (
	RoleClock   Role = "clock"
	RoleCamera  Role = "camera"
	RoleTracker Role = "tracker"
	RoleFusion  Role = "fusion"
)

// Tick is published by the clock once per simulated time unit, starting at 1.
type Tick struct {
	courier.Notice
	Time int
}

// Terminated announces that a worker finished normally. Workers shut down in
// the order clock, cameras, trackers, fusion so nothing in flight is lost.
type Terminated struct {
	courier.Notice
	Source string
	Role   Role
}

// Crashed announces that a sensor failed. Every worker stops when it sees one.
type Crashed struct {
	courier.Notice
	Source string
	Time   int
}

// DetectObjects carries one camera frame to a tracker. It resolves to the
// number of objects the tracker handed to fusion.
type DetectObjects struct {
	courier.Expects[int]
	Camera  int
	Time    int
	Objects []config.Object
}

// TrackObjects carries tracked objects to fusion. It resolves to the number of
// landmarks that were seen for the first time.
type TrackObjects struct {
	courier.Expects[int]
	Tracker string
	Time    int
	Objects []config.Object
}

// PoseAt asks for the pose of the vehicle at a tick. It resolves to nil when
// the pose of that tick is unknown.
type PoseAt struct {
	courier.Expects[*config.Pose]
	Time int
}
