package courier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/courier/internal/inbox"
	"github.com/casualjim/courier/internal/registry"
	"github.com/casualjim/courier/pkg/reflectx"
	"github.com/casualjim/courier/pkg/slogx"
	"github.com/fogfish/opts"
)

// Identity is what the broker needs to know about a worker. ID is the key for
// the inbox and subscriptions, Name only shows up in logs and errors.
type Identity interface {
	ID() string
	Name() string
}

// Broker routes messages between registered workers.
//
// Requests go to exactly one subscriber of their kind, picked round-robin.
// Notifications go to every subscriber of their kind at the moment of publishing.
// All methods are safe for concurrent use.
type Broker struct {
	inboxes       registry.Registry[*inbox.Inbox[Message]]
	requests      registry.Registry[*registry.Rotation]
	notifications registry.Registry[*registry.Rotation]

	// request sequence number -> *Promise[T]
	pending *haxmap.Map[uint64, any]
	seq     atomic.Uint64

	stats counters

	inboxCapacity   int
	retainCompleted bool
	log             *slog.Logger
}

// New creates a broker. Every worker that should talk to the others must be
// given the same broker.
func New(options ...opts.Option[Broker]) *Broker {
	b := &Broker{
		inboxes:       registry.New[*inbox.Inbox[Message]](),
		requests:      registry.New[*registry.Rotation](),
		notifications: registry.New[*registry.Rotation](),
		pending:       haxmap.New[uint64, any](),
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With(slogx.LoggerName("broker"))
	return b
}

// Register creates an inbox for w unless it already has one.
func (b *Broker) Register(w Identity) {
	id, ok := identityKey(w)
	if !ok {
		return
	}
	_, loaded := b.inboxes.GetOrAdd(id, func() *inbox.Inbox[Message] {
		return inbox.New[Message](b.inboxCapacity)
	})
	if !loaded {
		b.log.Debug("registered worker", slog.String("worker", w.Name()), slog.String("worker_id", id))
	}
}

// Unregister drops the inbox of w and removes it from every subscription.
// Messages already queued for w are discarded, not rerouted to other
// subscribers. Senders blocked on the full inbox of w are released.
func (b *Broker) Unregister(w Identity) {
	id, ok := identityKey(w)
	if !ok {
		return
	}
	if box, ok := b.inboxes.Get(id); ok {
		b.inboxes.Del(id)
		box.Close()
	}

	strike := func(_ string, rot *registry.Rotation) bool {
		rot.Remove(id)
		return true
	}
	b.requests.ForEach(strike)
	b.notifications.ForEach(strike)
	b.log.Debug("unregistered worker", slog.String("worker", w.Name()), slog.String("worker_id", id))
}

// IsRegistered reports whether w currently has an inbox.
func (b *Broker) IsRegistered(w Identity) bool {
	id, ok := identityKey(w)
	if !ok {
		return false
	}
	_, ok = b.inboxes.Get(id)
	return ok
}

// SubscribeRequest appends w to the rotation for requests of kind. Subscribing
// twice gives w two slots in the rotation.
func (b *Broker) SubscribeRequest(kind Kind, w Identity) {
	subscribe(b.requests, kind, w)
}

// SubscribeNotification appends w to the subscribers of notifications of kind.
func (b *Broker) SubscribeNotification(kind Kind, w Identity) {
	subscribe(b.notifications, kind, w)
}

func subscribe(subs registry.Registry[*registry.Rotation], kind Kind, w Identity) {
	id, ok := identityKey(w)
	if !ok || kind == "" {
		return
	}
	rot, _ := subs.GetOrAdd(string(kind), registry.NewRotation)
	rot.Add(id)
}

// Send delivers req to one subscriber of its kind and returns the promise for
// its result. When no registered worker subscribes to the kind the request is
// dropped and ErrNoSubscribers is returned with a nil promise. With bounded
// inboxes Send waits for room; if ctx ends first the request is withdrawn and the
// context error is returned.
//
// A request value can be delivered once. Sending it again returns
// ErrAlreadySent; a send that failed leaves it unbound so it can be retried.
func Send[T any](ctx context.Context, b *Broker, req Request[T]) (*Promise[T], error) {
	if b == nil || reflectx.IsNil(req) {
		return nil, ErrNoSubscribers
	}
	kind := KindOfMessage(req)
	if req.requestSeq() != 0 {
		return nil, fmt.Errorf("%w: %s #%d", ErrAlreadySent, kind, req.requestSeq())
	}

	box, ok := b.pick(kind)
	if !ok {
		b.stats.dropped.Add(1)
		b.log.Debug("dropped request without subscribers", slog.String("kind", string(kind)))
		return nil, fmt.Errorf("%w: %s", ErrNoSubscribers, kind)
	}

	seq := b.seq.Add(1)
	promise := NewPromise[T]()
	req.bindRequest(seq)
	b.pending.Set(seq, promise)

	if err := box.Push(ctx, req); err != nil {
		b.pending.Del(seq)
		req.bindRequest(0)
		if errors.Is(err, inbox.ErrClosed) {
			// the receiver unregistered while we waited for room
			b.stats.dropped.Add(1)
			return nil, fmt.Errorf("%w: %s", ErrNoSubscribers, kind)
		}
		return nil, err
	}
	b.stats.sent.Add(1)
	b.stats.deliveries.Add(1)
	return promise, nil
}

// pick selects the next subscriber for kind that still has an inbox.
func (b *Broker) pick(kind Kind) (*inbox.Inbox[Message], bool) {
	rot, ok := b.requests.Get(string(kind))
	if !ok {
		return nil, false
	}

	var box *inbox.Inbox[Message]
	_, ok = rot.Next(func(id string) bool {
		var found bool
		box, found = b.inboxes.Get(id)
		return found
	})
	return box, ok
}

// Complete resolves the promise of req with value. It reports false when req was
// never delivered, was dropped or has already been completed.
func Complete[T any](b *Broker, req Request[T], value T) bool {
	if b == nil || reflectx.IsNil(req) {
		return false
	}
	seq := req.requestSeq()
	if seq == 0 {
		return false
	}

	entry, ok := b.pending.Get(seq)
	if !ok {
		return false
	}
	promise, ok := entry.(*Promise[T])
	if !ok {
		b.log.Warn("request completed with a mismatched result type",
			slog.String("kind", string(KindOfMessage(req))),
			slog.String("result", fmt.Sprintf("%T", value)),
		)
		return false
	}

	won := promise.Resolve(value)
	if !b.retainCompleted {
		b.pending.Del(seq)
	}
	if won {
		b.stats.completed.Add(1)
	}
	return won
}

// Publish queues n for every worker subscribed to its kind. It returns once n
// has been queued everywhere, or with the context error if a bounded inbox did
// not make room in time.
func (b *Broker) Publish(ctx context.Context, n Notification) error {
	if reflectx.IsNil(n) {
		return nil
	}
	kind := KindOfMessage(n)
	b.stats.published.Add(1)

	rot, ok := b.notifications.Get(string(kind))
	if !ok {
		return nil
	}
	for _, id := range rot.Snapshot() {
		box, ok := b.inboxes.Get(id)
		if !ok {
			continue
		}
		if err := box.Push(ctx, n); err != nil {
			if errors.Is(err, inbox.ErrClosed) {
				continue
			}
			return err
		}
		b.stats.deliveries.Add(1)
	}
	return nil
}

// AwaitNext blocks until a message is available for w and returns it. It fails
// right away with ErrNotRegistered when w has no inbox, and with the context
// error when ctx ends first.
func (b *Broker) AwaitNext(ctx context.Context, w Identity) (Message, error) {
	id, ok := identityKey(w)
	if !ok {
		return nil, ErrNotRegistered
	}
	box, ok := b.inboxes.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, w.Name())
	}
	msg, err := box.Pop(ctx)
	if errors.Is(err, inbox.ErrClosed) {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, w.Name())
	}
	return msg, err
}

// Pending returns the number of promises the broker still tracks.
func (b *Broker) Pending() int {
	return int(b.pending.Len())
}

// Stats is a snapshot of the broker's counters.
type Stats struct {
	Workers                int    `json:"workers"`
	Pending                int    `json:"pending"`
	RequestsSent           uint64 `json:"requests_sent"`
	RequestsDropped        uint64 `json:"requests_dropped"`
	RequestsCompleted      uint64 `json:"requests_completed"`
	NotificationsPublished uint64 `json:"notifications_published"`
	Deliveries             uint64 `json:"deliveries"`
}

type counters struct {
	sent       atomic.Uint64
	dropped    atomic.Uint64
	completed  atomic.Uint64
	published  atomic.Uint64
	deliveries atomic.Uint64
}

// Stats returns the current counters.
func (b *Broker) Stats() Stats {
	return Stats{
		Workers:                b.inboxes.Len(),
		Pending:                b.Pending(),
		RequestsSent:           b.stats.sent.Load(),
		RequestsDropped:        b.stats.dropped.Load(),
		RequestsCompleted:      b.stats.completed.Load(),
		NotificationsPublished: b.stats.published.Load(),
		Deliveries:             b.stats.deliveries.Load(),
	}
}

func identityKey(w Identity) (string, bool) {
	if reflectx.IsNil(w) {
		return "", false
	}
	id := w.ID()
	return id, id != ""
}
