package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/pkg/slogx"
	"github.com/fogfish/opts"
)

const clockName = "clock"

// NewClock creates the worker that drives the simulation. It publishes a Tick
// every interval until it has published duration of them or a sensor crashed,
// then publishes Terminated and stops once it receives its own announcement.
func NewClock(b *courier.Broker, stats *Stats, interval time.Duration, duration int, options ...opts.Option[courier.Worker]) *courier.Worker {
	return courier.NewWorker(clockName, b, func(ctx context.Context, w *courier.Worker) error {
		stop := make(chan struct{})
		var stopOnce sync.Once
		halt := func() { stopOnce.Do(func() { close(stop) }) }

		courier.HandleNotification(w, func(_ context.Context, n Crashed) error {
			w.Logger().Info("sensor crashed, stopping the clock", slog.String("source", n.Source))
			halt()
			return nil
		})
		courier.HandleNotification(w, func(_ context.Context, n Terminated) error {
			if n.Role == RoleClock {
				w.Terminate()
			}
			return nil
		})

		go tick(ctx, w, stats, interval, duration, stop)
		return nil
	}, options...)
}

func tick(ctx context.Context, w *courier.Worker, stats *Stats, interval time.Duration, duration int, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for t := 1; t <= duration; t++ {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			break loop
		case <-ticker.C:
		}

		if err := w.Publish(ctx, Tick{Time: t}); err != nil {
			w.Logger().Warn("failed to publish tick", slog.Int("tick", t), slogx.Error(err))
			return
		}
		stats.addRuntime(1)
		w.Logger().Debug("tick", slog.Int("tick", t))
	}

	if err := w.Publish(ctx, Terminated{Source: w.Name(), Role: RoleClock}); err != nil {
		w.Logger().Warn("failed to publish termination", slogx.Error(err))
	}
}
