package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/courier"
	"github.com/fogfish/opts"
)

// TrackerName is the worker name of the n-th tracker.
func TrackerName(n int) string {
	return fmt.Sprintf("tracker-%d", n)
}

type tracker struct {
	w       *courier.Worker
	stats   *Stats
	timeout time.Duration

	cameras       int
	camerasExited int
}

// NewTracker creates a tracker worker. Trackers share the frames of all cameras
// round-robin, hand the objects to fusion and wait for it to confirm them. A
// tracker stops once every camera has terminated, so no frame is left behind.
func NewTracker(b *courier.Broker, stats *Stats, n, cameras int, timeout time.Duration, options ...opts.Option[courier.Worker]) *courier.Worker {
	t := &tracker{stats: stats, timeout: timeout, cameras: cameras}
	return courier.NewWorker(TrackerName(n), b, func(_ context.Context, w *courier.Worker) error {
		t.w = w
		courier.HandleRequest(w, courier.Reply(b, t.onDetect))
		courier.HandleNotification(w, t.onTerminated)
		courier.HandleNotification(w, func(context.Context, Crashed) error {
			w.Terminate()
			return nil
		})
		return nil
	}, options...)
}

func (t *tracker) onDetect(ctx context.Context, req *DetectObjects) (int, error) {
	p, err := courier.Send[int](ctx, t.w.Broker(), &TrackObjects{
		Tracker: t.w.Name(),
		Time:    req.Time,
		Objects: req.Objects,
	})
	if errors.Is(err, courier.ErrNoSubscribers) {
		// fusion is gone, which only happens after a crash
		t.w.Logger().Debug("dropping frame without fusion", slog.Int("camera", req.Camera), slog.Int("tick", req.Time))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("forward frame %d of camera %d: %w", req.Time, req.Camera, err)
	}
	t.stats.addTracked(len(req.Objects))
	t.stats.recordFrame(t.w.Name(), req.Time, req.Objects)

	fresh, ok := p.GetTimeout(t.timeout)
	if !ok {
		t.w.Logger().Warn("fusion did not confirm in time",
			slog.Int("camera", req.Camera),
			slog.Int("tick", req.Time),
			slog.Duration("timeout", t.timeout),
		)
		return len(req.Objects), nil
	}
	t.w.Logger().Debug("frame tracked",
		slog.Int("camera", req.Camera),
		slog.Int("tick", req.Time),
		slog.Int("new_landmarks", fresh),
	)
	return len(req.Objects), nil
}

func (t *tracker) onTerminated(ctx context.Context, n Terminated) error {
	if n.Role != RoleCamera {
		return nil
	}
	t.camerasExited++
	if t.camerasExited < t.cameras {
		return nil
	}
	t.w.Terminate()
	return t.w.Publish(ctx, Terminated{Source: t.w.Name(), Role: RoleTracker})
}
