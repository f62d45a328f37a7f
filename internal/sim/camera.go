package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
	"github.com/casualjim/courier/pkg/slogx"
	"github.com/fogfish/opts"
)

// CameraName is the worker name of the camera with the given id.
func CameraName(id int) string {
	return fmt.Sprintf("camera-%d", id)
}

type camera struct {
	cfg   config.Camera
	w     *courier.Worker
	stats *Stats

	inflight  []*courier.Promise[int]
	confirmed int
}

// NewCamera creates a camera worker. On every tick that is a multiple of its
// frequency it sends the objects it sees to a tracker. At its error tick it
// publishes Crashed instead and stops.
func NewCamera(b *courier.Broker, stats *Stats, cfg config.Camera, options ...opts.Option[courier.Worker]) *courier.Worker {
	c := &camera{cfg: cfg, stats: stats}
	return courier.NewWorker(CameraName(cfg.ID), b, func(_ context.Context, w *courier.Worker) error {
		c.w = w
		courier.HandleNotification(w, c.onTick)
		courier.HandleNotification(w, c.onTerminated)
		courier.HandleNotification(w, c.onCrashed)
		return nil
	}, options...)
}

func (c *camera) onTick(ctx context.Context, tick Tick) error {
	c.collect()

	if c.cfg.ErrorAt > 0 && tick.Time == c.cfg.ErrorAt {
		if c.stats.recordFault(c.w.Name(), tick.Time) {
			c.w.Logger().Warn("camera failed", slog.Int("tick", tick.Time))
		}
		c.w.Terminate()
		return c.w.Publish(ctx, Crashed{Source: c.w.Name(), Time: tick.Time})
	}

	if tick.Time%c.cfg.Frequency != 0 || len(c.cfg.Objects) == 0 {
		return nil
	}

	objects := slices.Clone(c.cfg.Objects)
	p, err := courier.Send[int](ctx, c.w.Broker(), &DetectObjects{Camera: c.cfg.ID, Time: tick.Time, Objects: objects})
	if errors.Is(err, courier.ErrNoSubscribers) {
		c.w.Logger().Warn("no tracker for frame", slog.Int("tick", tick.Time))
		return nil
	}
	if err != nil {
		return err
	}
	c.stats.addDetected(len(objects))
	c.stats.recordFrame(c.w.Name(), tick.Time, objects)
	c.inflight = append(c.inflight, p)
	return nil
}

// collect drops the frames that trackers already finished with.
func (c *camera) collect() {
	pending := c.inflight[:0]
	for _, p := range c.inflight {
		if p.IsDone() {
			c.confirmed += p.Get()
			continue
		}
		pending = append(pending, p)
	}
	clear(c.inflight[len(pending):])
	c.inflight = pending
}

func (c *camera) onTerminated(ctx context.Context, n Terminated) error {
	if n.Role != RoleClock {
		return nil
	}
	c.collect()
	c.w.Logger().Info("camera stopped",
		slog.Int("confirmed", c.confirmed),
		slog.Int("unconfirmed_frames", len(c.inflight)),
	)
	c.w.Terminate()
	if err := c.w.Publish(ctx, Terminated{Source: c.w.Name(), Role: RoleCamera}); err != nil {
		c.w.Logger().Warn("failed to publish termination", slogx.Error(err))
		return err
	}
	return nil
}

func (c *camera) onCrashed(_ context.Context, n Crashed) error {
	c.w.Logger().Debug("stopping after crash", slog.String("source", n.Source))
	c.w.Terminate()
	return nil
}
