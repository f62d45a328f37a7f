package sim

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/casualjim/courier/internal/config"
)

// Fault describes the sensor failure that stopped a simulation.
type Fault struct {
	Source string `json:"source"`
	Time   int    `json:"time"`
}

// Frame is the last batch of objects a sensor handled.
type Frame struct {
	Source  string          `json:"source"`
	Time    int             `json:"time"`
	Objects []config.Object `json:"objects"`
}

// Stats collects the counters that every worker reports into.
type Stats struct {
	runtime   atomic.Int64
	detected  atomic.Int64
	tracked   atomic.Int64
	landmarks atomic.Int64

	mu         sync.Mutex
	fault      *Fault
	lastFrames map[string]Frame
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	RuntimeTicks    int64 `json:"runtime_ticks"`
	DetectedObjects int64 `json:"detected_objects"`
	TrackedObjects  int64 `json:"tracked_objects"`
	Landmarks       int64 `json:"landmarks"`
}

func (s *Stats) addRuntime(ticks int) { s.runtime.Add(int64(ticks)) }
func (s *Stats) addDetected(n int)    { s.detected.Add(int64(n)) }
func (s *Stats) addTracked(n int)     { s.tracked.Add(int64(n)) }
func (s *Stats) addLandmarks(n int)   { s.landmarks.Add(int64(n)) }

// recordFault keeps the first fault, later ones are dropped.
func (s *Stats) recordFault(source string, time int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return false
	}
	s.fault = &Fault{Source: source, Time: time}
	return true
}

// recordFrame replaces the last frame of source.
func (s *Stats) recordFrame(source string, time int, objects []config.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFrames == nil {
		s.lastFrames = make(map[string]Frame)
	}
	s.lastFrames[source] = Frame{Source: source, Time: time, Objects: slices.Clone(objects)}
}

// LastFrames returns the last frame of every sensor, sorted by source.
func (s *Stats) LastFrames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := make([]Frame, 0, len(s.lastFrames))
	for _, f := range s.lastFrames {
		f.Objects = slices.Clone(f.Objects)
		frames = append(frames, f)
	}
	slices.SortFunc(frames, func(a, b Frame) int { return cmp.Compare(a.Source, b.Source) })
	return frames
}

// Fault returns the recorded fault, or nil when no sensor failed.
func (s *Stats) Fault() *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault == nil {
		return nil
	}
	f := *s.fault
	return &f
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RuntimeTicks:    s.runtime.Load(),
		DetectedObjects: s.detected.Load(),
		TrackedObjects:  s.tracked.Load(),
		Landmarks:       s.landmarks.Load(),
	}
}
