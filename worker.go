package courier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/casualjim/courier/pkg/slogx"
	"github.com/casualjim/courier/pkg/uuidx"
	"github.com/fogfish/opts"
)

// State is the lifecycle state of a Worker. A worker only ever moves forward.
type State int32

const (
	StateCreated State = iota
	StateInitializing
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SetupFunc runs while a worker is initializing. It registers the handlers of the
// worker; it can also send the first messages.
type SetupFunc func(ctx context.Context, w *Worker) error

type handlerFunc func(ctx context.Context, msg Message) error

var _ Identity = (*Worker)(nil)

// Worker is a message processing loop bound to a broker. It handles one message
// at a time, on the goroutine that calls Run.
type Worker struct {
	id     string
	name   string
	broker *Broker
	setup  SetupFunc
	log    *slog.Logger

	// written during setup, read by the loop, both on the Run goroutine
	handlers map[Kind]handlerFunc

	state      atomic.Int32
	terminated atomic.Bool
	ready      chan struct{}
	readyOnce  sync.Once
}

// NewWorker creates a worker that will use broker once it runs. setup may be nil
// for a worker that registers its handlers before Run is called.
func NewWorker(name string, broker *Broker, setup SetupFunc, options ...opts.Option[Worker]) *Worker {
	w := &Worker{
		id:       uuidx.NewString(),
		name:     name,
		broker:   broker,
		setup:    setup,
		handlers: make(map[Kind]handlerFunc),
		ready:    make(chan struct{}),
	}
	if err := opts.Apply(w, options); err != nil {
		panic(err)
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	w.log = w.log.With(slogx.LoggerName("worker"), slog.String("worker", name))
	return w
}

// ID returns the unique identifier of the worker.
func (w *Worker) ID() string {
	if w == nil {
		return ""
	}
	return w.id
}

// Name returns the human readable name of the worker.
func (w *Worker) Name() string {
	if w == nil {
		return ""
	}
	return w.name
}

func (w *Worker) String() string {
	return w.name
}

// Broker returns the broker the worker talks to.
func (w *Worker) Broker() *Broker {
	return w.broker
}

// Logger returns the worker's logger.
func (w *Worker) Logger() *slog.Logger {
	return w.log
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Ready is closed once the worker has finished initializing, or has exited.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Terminate asks the processing loop to stop after the current message. It is
// meant to be called from the worker's own handlers.
func (w *Worker) Terminate() {
	w.terminated.Store(true)
}

// Terminated reports whether Terminate was called.
func (w *Worker) Terminated() bool {
	return w.terminated.Load()
}

// Publish is a shorthand for publishing a notification on the worker's broker.
func (w *Worker) Publish(ctx context.Context, n Notification) error {
	return w.broker.Publish(ctx, n)
}

// Run registers the worker with its broker, runs setup and then processes
// messages until the worker terminates itself, a handler fails or ctx is done.
// Run can only be called once. It does not unregister the worker.
func (w *Worker) Run(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateCreated), int32(StateInitializing)) {
		return fmt.Errorf("worker %s: already started", w.name)
	}
	defer func() {
		w.state.Store(int32(StateTerminated))
		w.markReady()
	}()

	w.broker.Register(w)
	if w.setup != nil {
		if err := w.setup(ctx, w); err != nil {
			return fmt.Errorf("worker %s: setup: %w", w.name, err)
		}
	}

	w.state.Store(int32(StateRunning))
	w.markReady()
	w.log.Debug("worker running", slog.Int("handlers", len(w.handlers)))

	for !w.Terminated() {
		msg, err := w.broker.AwaitNext(ctx, w)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.log.Debug("worker interrupted", slogx.Error(err))
			}
			return err
		}

		if err := w.dispatch(ctx, msg); err != nil {
			w.log.Error("handler failed", slogx.Error(err))
			return fmt.Errorf("worker %s: %w", w.name, err)
		}
	}

	w.log.Debug("worker terminated")
	return nil
}

func (w *Worker) markReady() {
	w.readyOnce.Do(func() { close(w.ready) })
}

func (w *Worker) dispatch(ctx context.Context, msg Message) error {
	kind := KindOfMessage(msg)
	handler, ok := w.handlers[kind]
	if !ok {
		w.log.Debug("ignoring message without handler", slog.String("kind", string(kind)))
		return nil
	}
	return handler(ctx, msg)
}

// HandleRequest installs fn as the handler for requests of type M and subscribes
// the worker to them. The handler is expected to call Complete, now or later,
// with the request it was given. Installing a second handler for the same type
// replaces the first but also adds another subscription.
func HandleRequest[M AnyRequest](w *Worker, fn func(ctx context.Context, req M) error) {
	kind := KindOf[M]()
	w.handlers[kind] = typedHandler(w, fn)
	w.broker.SubscribeRequest(kind, w)
}

// HandleNotification installs fn as the handler for notifications of type M and
// subscribes the worker to them.
func HandleNotification[M Notification](w *Worker, fn func(ctx context.Context, n M) error) {
	kind := KindOf[M]()
	w.handlers[kind] = typedHandler(w, fn)
	w.broker.SubscribeNotification(kind, w)
}

// typedHandler adapts fn to the handler table. A message of any other type is
// logged and dropped.
func typedHandler[M any](w *Worker, fn func(ctx context.Context, msg M) error) handlerFunc {
	return func(ctx context.Context, msg Message) error {
		typed, ok := msg.(M)
		if !ok {
			w.log.Warn("dropping message of unexpected type",
				slog.String("want", string(KindOf[M]())),
				slog.String("got", string(KindOfMessage(msg))),
			)
			return nil
		}
		return fn(ctx, typed)
	}
}

// Reply returns a handler that completes each request with the value computed by
// fn. When fn fails the request is left unresolved and the error is returned.
func Reply[M Request[T], T any](b *Broker, fn func(ctx context.Context, req M) (T, error)) func(context.Context, M) error {
	return func(ctx context.Context, req M) error {
		value, err := fn(ctx, req)
		if err != nil {
			return err
		}
		Complete[T](b, req, value)
		return nil
	}
}
