// Package runner starts a set of workers, waits for them and cleans up after
// them.
//
// Workers are started in stages. Every worker of a stage runs on its own
// goroutine; the next stage only starts once all workers of the previous stage
// are running (or have already exited). This lets producers that drive the
// system, like a clock, start after everyone who listens to them has subscribed.
//
//	r := runner.New(broker,
//		runner.Stage(cameraWorker, trackerWorker, fusionWorker),
//		runner.Stage(clockWorker),
//	)
//	if err := r.Run(ctx); err != nil {
//		return err
//	}
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/pkg/slogx"
	"github.com/fogfish/opts"
	"golang.org/x/sync/errgroup"
)

// Runner owns the lifecycle of a group of workers sharing one broker.
type Runner struct {
	broker       *courier.Broker
	stages       [][]*courier.Worker
	log          *slog.Logger
	readyTimeout time.Duration
}

// Stage appends a group of workers that start together.
func Stage(workers ...*courier.Worker) opts.Option[Runner] {
	return opts.Type[Runner](func(r *Runner) error {
		if len(workers) == 0 {
			return nil
		}
		r.stages = append(r.stages, workers)
		return nil
	})
}

// Logger sets the logger of the runner. Defaults to slog.Default().
func Logger(logger *slog.Logger) opts.Option[Runner] {
	return opts.Type[Runner](func(r *Runner) error {
		r.log = logger
		return nil
	})
}

// ReadyTimeout bounds how long a stage may take to initialize. Zero waits
// forever.
var ReadyTimeout = opts.ForName[Runner, time.Duration]("readyTimeout")

// New creates a runner for workers bound to broker.
func New(broker *courier.Broker, options ...opts.Option[Runner]) (*Runner, error) {
	if broker == nil {
		return nil, errors.New("runner: broker is required")
	}
	r := &Runner{broker: broker}
	if err := opts.Apply(r, options); err != nil {
		return nil, err
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	r.log = r.log.With(slogx.LoggerName("runner"))
	return r, nil
}

// Workers returns every worker of every stage, in start order.
func (r *Runner) Workers() []*courier.Worker {
	var all []*courier.Worker
	for _, stage := range r.stages {
		all = append(all, stage...)
	}
	return all
}

// Run starts the stages in order and blocks until every worker has returned.
// Each worker is unregistered from the broker when its Run returns. The first
// worker failure cancels the context of the others and is returned; a context
// cancellation by itself is a normal shutdown and returns nil. When a stage
// fails to start, the stages after it are never started.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	g, gctx := errgroup.WithContext(ctx)

	var startErr error
	for i, stage := range r.stages {
		exited := make(map[*courier.Worker]chan struct{}, len(stage))
		for _, w := range stage {
			done := make(chan struct{})
			exited[w] = done
			g.Go(func() error {
				defer close(done)
				defer r.broker.Unregister(w)
				err := w.Run(gctx)
				if err != nil && !isShutdown(err) {
					r.log.Error("worker failed", slog.String("worker", w.Name()), slogx.Error(err))
					cancel(err)
					return err
				}
				r.log.Debug("worker stopped", slog.String("worker", w.Name()))
				return nil
			})
		}

		if err := r.awaitReady(gctx, stage, exited); err != nil {
			if !isShutdown(err) {
				startErr = fmt.Errorf("runner: stage %d: %w", i, err)
				cancel(startErr)
			}
			break
		}
		if gctx.Err() != nil {
			break
		}
		r.log.Debug("stage ready", slog.Int("stage", i), slog.Int("workers", len(stage)))
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return startErr
}

// awaitReady blocks until every worker of stage is running. A worker that
// exits during setup counts as ready once its goroutine has finished, so a
// setup failure is visible on ctx before the next stage starts.
func (r *Runner) awaitReady(ctx context.Context, stage []*courier.Worker, exited map[*courier.Worker]chan struct{}) error {
	var timeout <-chan time.Time
	if r.readyTimeout > 0 {
		timer := time.NewTimer(r.readyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for _, w := range stage {
		select {
		case <-w.Ready():
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("worker %s not ready after %s", w.Name(), r.readyTimeout)
		}
		if w.State() == courier.StateTerminated {
			<-exited[w]
		}
	}
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
