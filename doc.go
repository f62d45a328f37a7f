/*
Package courier provides an in-process publish/subscribe broker for workers that
talk to each other through typed messages.

There are two kinds of messages:

  - Requests go to exactly one subscriber, chosen round-robin among the workers
    subscribed to the request type. The sender gets a Promise that is resolved
    when the receiver completes the request.
  - Notifications are broadcast to every subscriber of the notification type.
    Nobody answers them.

# Messages

A request is a pointer to a struct that embeds Expects with the type of its
result. A notification is a struct that embeds Notice:

	type Detect struct {
		courier.Expects[int]
		Frame int
	}

	type Tick struct {
		courier.Notice
		Time int
	}

The Go type of a message is its routing key. Every *Detect is delivered to
Detect subscribers, every Tick to Tick subscribers.

# Basic Usage

	b := courier.New()

	tracker := courier.NewWorker("tracker", b, func(ctx context.Context, w *courier.Worker) error {
		courier.HandleRequest(w, courier.Reply(b, func(ctx context.Context, req *Detect) (int, error) {
			return track(req.Frame), nil
		}))
		return nil
	})
	go tracker.Run(ctx)
	<-tracker.Ready()

	p, err := courier.Send[int](ctx, b, &Detect{Frame: 1})
	if err != nil {
		// nobody is subscribed to *Detect
	}
	objects, ok := p.GetTimeout(time.Second)

# Architecture

 1. Broker (broker.go)
    - Keeps one inbox per registered worker
    - Keeps a subscription rotation per message type
    - Tracks the promises of requests that were sent but not completed yet

 2. Worker (worker.go)
    - Registers itself, runs its setup and installs handlers
    - Processes its inbox one message at a time until it terminates

 3. Promise (promise.go)
    - A write-once result that any number of goroutines can wait for

The runner package starts groups of workers in order and waits for them.

# Delivery Guarantees

Messages from one sender to one receiver arrive in the order they were sent. A
request is delivered to at most one worker; when no registered worker is
subscribed, Send fails with ErrNoSubscribers and nothing is queued. A
notification is delivered to the workers subscribed at the moment Publish is
called.

# Thread Safety

Broker and Promise are safe for concurrent use. A Worker runs its handlers on
the goroutine that called Run, so handlers don't need to synchronize with each
other.
*/
package courier
