package sim

import (
	"context"
	"log/slog"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
	"github.com/fogfish/opts"
)

const poseName = "pose"

// NewPoseService creates the worker that answers PoseAt requests from the
// configured trajectory. Without a trajectory every tick is at the origin. It
// stops when fusion terminated or a sensor crashed.
func NewPoseService(b *courier.Broker, poses []config.Pose, options ...opts.Option[courier.Worker]) *courier.Worker {
	byTime := make(map[int]config.Pose, len(poses))
	for _, p := range poses {
		byTime[p.Time] = p
	}

	return courier.NewWorker(poseName, b, func(_ context.Context, w *courier.Worker) error {
		courier.HandleRequest(w, courier.Reply(b, func(_ context.Context, req *PoseAt) (*config.Pose, error) {
			if len(byTime) == 0 {
				return &config.Pose{Time: req.Time}, nil
			}
			p, ok := byTime[req.Time]
			if !ok {
				w.Logger().Debug("no pose for tick", slog.Int("tick", req.Time))
				return nil, nil
			}
			return &p, nil
		}))
		courier.HandleNotification(w, func(_ context.Context, n Terminated) error {
			if n.Role == RoleFusion {
				w.Terminate()
			}
			return nil
		})
		courier.HandleNotification(w, func(context.Context, Crashed) error {
			w.Terminate()
			return nil
		})
		return nil
	}, options...)
}
