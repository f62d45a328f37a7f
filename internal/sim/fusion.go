package sim

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
	"github.com/fogfish/opts"
)

const fusionName = "fusion"

// Landmark is an object placed in global coordinates.
type Landmark struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Fusion merges the objects of all trackers into a map of landmarks. Objects
// are moved from vehicle to global coordinates with the pose of the tick they
// were seen at; a landmark seen again moves to the midpoint of its old and new
// position.
type Fusion struct {
	w           *courier.Worker
	stats       *Stats
	trackers    int
	exited      int
	poseTimeout time.Duration

	mu        sync.Mutex
	landmarks map[string]Landmark
	poses     map[int]*config.Pose
}

// NewFusion creates the fusion worker. It stops after every tracker
// terminated and announces its own termination.
func NewFusion(b *courier.Broker, stats *Stats, trackers int, poseTimeout time.Duration, options ...opts.Option[courier.Worker]) (*Fusion, *courier.Worker) {
	f := &Fusion{
		stats:       stats,
		trackers:    trackers,
		poseTimeout: poseTimeout,
		landmarks:   make(map[string]Landmark),
		poses:       make(map[int]*config.Pose),
	}
	w := courier.NewWorker(fusionName, b, func(_ context.Context, w *courier.Worker) error {
		f.w = w
		courier.HandleRequest(w, courier.Reply(b, f.onTrack))
		courier.HandleNotification(w, f.onTerminated)
		courier.HandleNotification(w, func(context.Context, Crashed) error {
			w.Terminate()
			return nil
		})
		return nil
	}, options...)
	return f, w
}

func (f *Fusion) onTrack(ctx context.Context, req *TrackObjects) (int, error) {
	pose, err := f.poseAt(ctx, req.Time)
	if err != nil {
		return 0, err
	}
	if pose == nil {
		f.w.Logger().Debug("skipping objects without pose",
			slog.String("tracker", req.Tracker),
			slog.Int("tick", req.Time),
			slog.Int("objects", len(req.Objects)),
		)
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fresh := 0
	for _, o := range req.Objects {
		placed := toGlobal(*pose, o)
		known, seen := f.landmarks[o.ID]
		if !seen {
			f.landmarks[o.ID] = placed
			fresh++
			continue
		}
		known.X = (known.X + placed.X) / 2
		known.Y = (known.Y + placed.Y) / 2
		f.landmarks[o.ID] = known
	}
	f.stats.addLandmarks(fresh)
	return fresh, nil
}

// poseAt asks the pose service for the pose of tick t. Answers are kept, a
// timeout is not.
func (f *Fusion) poseAt(ctx context.Context, t int) (*config.Pose, error) {
	f.mu.Lock()
	pose, known := f.poses[t]
	f.mu.Unlock()
	if known {
		return pose, nil
	}

	p, err := courier.Send[*config.Pose](ctx, f.w.Broker(), &PoseAt{Time: t})
	if errors.Is(err, courier.ErrNoSubscribers) {
		// the pose service is gone, which only happens after a crash
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pose, ok := p.GetTimeout(f.poseTimeout)
	if !ok {
		f.w.Logger().Warn("pose service did not answer in time", slog.Int("tick", t), slog.Duration("timeout", f.poseTimeout))
		return nil, nil
	}

	f.mu.Lock()
	f.poses[t] = pose
	f.mu.Unlock()
	return pose, nil
}

func (f *Fusion) onTerminated(ctx context.Context, n Terminated) error {
	if n.Role != RoleTracker {
		return nil
	}
	f.exited++
	if f.exited < f.trackers {
		return nil
	}
	f.w.Terminate()
	return f.w.Publish(ctx, Terminated{Source: f.w.Name(), Role: RoleFusion})
}

// toGlobal rotates o by the yaw of pose and moves it by the pose position.
func toGlobal(pose config.Pose, o config.Object) Landmark {
	yaw := pose.Yaw * math.Pi / 180
	sin, cos := math.Sincos(yaw)
	return Landmark{
		ID: o.ID,
		X:  pose.X + o.X*cos - o.Y*sin,
		Y:  pose.Y + o.X*sin + o.Y*cos,
	}
}

// Landmarks returns all landmarks sorted by id.
func (f *Fusion) Landmarks() []Landmark {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Landmark, 0, len(f.landmarks))
	for _, l := range f.landmarks {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Landmark) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Poses returns the known poses fusion used, sorted by tick.
func (f *Fusion) Poses() []config.Pose {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]config.Pose, 0, len(f.poses))
	for _, p := range f.poses {
		if p != nil {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b config.Pose) int { return cmp.Compare(a.Time, b.Time) })
	return out
}
