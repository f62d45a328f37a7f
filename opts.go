package courier

import (
	"log/slog"

	"github.com/fogfish/opts"
)

// WithInboxCapacity bounds every inbox created by the broker. Senders block while
// the target inbox is full. Zero, the default, means unbounded.
var WithInboxCapacity = opts.ForName[Broker, int]("inboxCapacity")

// WithRetainCompleted keeps completed promises in the broker's pending table
// instead of pruning them on completion.
var WithRetainCompleted = opts.ForName[Broker, bool]("retainCompleted")

// WithLogger sets the logger for the broker. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) opts.Option[Broker] {
	return opts.Type[Broker](func(b *Broker) error {
		b.log = logger
		return nil
	})
}

// WorkerLogger sets the logger for a worker. Defaults to slog.Default().
func WorkerLogger(logger *slog.Logger) opts.Option[Worker] {
	return opts.Type[Worker](func(w *Worker) error {
		w.log = logger
		return nil
	})
}

// WorkerID overrides the generated identifier of a worker. IDs must be unique
// within a broker.
func WorkerID(id string) opts.Option[Worker] {
	return opts.Type[Worker](func(w *Worker) error {
		w.id = id
		return nil
	})
}
