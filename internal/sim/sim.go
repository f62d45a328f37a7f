// Package sim is a small sensor fusion simulation built on the courier broker.
//
// A clock publishes ticks. Cameras turn ticks into frames and send them to a
// pool of trackers, which forward the objects to a single fusion worker. Fusion
// asks the pose service where the vehicle was at the tick of a frame and keeps
// the map of landmarks in global coordinates. Any camera can be configured to fail,
// which stops the whole simulation and is recorded in the report.
package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/casualjim/courier"
	"github.com/casualjim/courier/internal/config"
	"github.com/casualjim/courier/pkg/slogx"
	"github.com/casualjim/courier/runner"
	"github.com/go-openapi/strfmt"
)

// Simulation wires the workers for one run.
type Simulation struct {
	cfg    config.Config
	broker *courier.Broker
	stats  *Stats
	fusion *Fusion
	runner *runner.Runner
	log    *slog.Logger
}

// New builds a simulation from cfg. Nothing runs until Run is called.
func New(cfg config.Config, logger *slog.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := courier.New(courier.WithInboxCapacity(cfg.InboxCapacity), courier.WithLogger(logger))
	stats := &Stats{}
	workerLog := courier.WorkerLogger(logger)

	sensors := make([]*courier.Worker, 0, len(cfg.Cameras)+cfg.Trackers+2)
	sensors = append(sensors, NewPoseService(b, cfg.Poses, workerLog))
	fusion, fusionWorker := NewFusion(b, stats, cfg.Trackers, cfg.TrackTimeout, workerLog)
	sensors = append(sensors, fusionWorker)
	for n := 1; n <= cfg.Trackers; n++ {
		sensors = append(sensors, NewTracker(b, stats, n, len(cfg.Cameras), cfg.TrackTimeout, workerLog))
	}
	for _, cam := range cfg.Cameras {
		sensors = append(sensors, NewCamera(b, stats, cam, workerLog))
	}
	clock := NewClock(b, stats, cfg.Tick, cfg.Duration, workerLog)

	r, err := runner.New(b,
		runner.Stage(sensors...),
		runner.Stage(clock),
		runner.Logger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		cfg:    cfg,
		broker: b,
		stats:  stats,
		fusion: fusion,
		runner: r,
		log:    logger.With(slogx.LoggerName("sim")),
	}, nil
}

// Broker returns the broker shared by the workers.
func (s *Simulation) Broker() *courier.Broker {
	return s.broker
}

// Run runs the simulation to completion and reports on it. The report is
// returned even when the run failed.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	s.log.Info("simulation starting",
		slog.Int("cameras", len(s.cfg.Cameras)),
		slog.Int("trackers", s.cfg.Trackers),
		slog.Int("duration", s.cfg.Duration),
		slog.Int("workers", len(s.runner.Workers())),
	)

	err := s.runner.Run(ctx)
	if err != nil {
		s.log.Error("simulation failed", slogx.Error(err))
	}
	for _, w := range s.runner.Workers() {
		s.log.Debug("worker finished", slog.String("worker", w.Name()), slog.String("state", w.State().String()))
	}

	report := &Report{
		GeneratedAt: strfmt.DateTime(time.Now().UTC()),
		Elapsed:     time.Since(start),
		Stats:       s.stats.Snapshot(),
		Landmarks:   s.fusion.Landmarks(),
		Fault:       s.stats.Fault(),
		Broker:      s.broker.Stats(),
	}
	if report.Fault != nil {
		report.LastFrames = s.stats.LastFrames()
		report.Poses = s.fusion.Poses()
	}
	s.log.Info("simulation finished",
		slog.String("status", report.Status()),
		slog.Duration("elapsed", report.Elapsed),
	)
	return report, err
}
