// Package inbox provides the FIFO queue that backs a worker's mailbox.
//
// An Inbox accepts values from any number of producer goroutines and hands them,
// in arrival order, to a single consumer. With a capacity of zero the queue is
// unbounded and Push never waits. With a positive capacity Push blocks while the
// queue is full, which is how backpressure reaches the sending goroutine.
//
// Waiting is implemented with one-slot signal channels instead of a sync.Cond so
// that both Push and Pop can give up when their context is cancelled.
package inbox

import (
	"context"
	"errors"
	"sync"

	list "github.com/bahlo/generic-list-go"
	"github.com/casualjim/courier/pkg/stdx"
)

// ErrClosed is returned by Push and Pop once the inbox is closed.
var ErrClosed = errors.New("inbox closed")

// Inbox is a context aware FIFO queue. The zero value is not usable, use New.
type Inbox[T any] struct {
	mu       sync.Mutex
	items    *list.List[T]
	capacity int

	// ready has a pending signal when items may be available
	ready chan struct{}
	// space has a pending signal when a bounded queue may accept a value
	space chan struct{}

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an inbox. A capacity <= 0 means unbounded.
func New[T any](capacity int) *Inbox[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Inbox[T]{
		items:    list.New[T](),
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Close discards the queued values and releases every goroutine blocked in Push
// or Pop with ErrClosed. It is safe to call more than once.
func (b *Inbox[T]) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.items.Init()
		close(b.closed)
		b.mu.Unlock()
	})
}

func (b *Inbox[T]) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

// Capacity returns the configured bound, 0 when unbounded.
func (b *Inbox[T]) Capacity() int {
	return b.capacity
}

// Len returns the number of queued values.
func (b *Inbox[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len()
}

// Push appends value to the tail of the queue. It blocks while a bounded queue is
// full and returns the context error if ctx is done before space frees up.
func (b *Inbox[T]) Push(ctx context.Context, value T) error {
	for {
		b.mu.Lock()
		if b.isClosed() {
			b.mu.Unlock()
			return ErrClosed
		}
		if b.capacity == 0 || b.items.Len() < b.capacity {
			b.items.PushBack(value)
			more := b.capacity > 0 && b.items.Len() < b.capacity
			b.mu.Unlock()

			signal(b.ready)
			if more {
				// another blocked producer may fit as well
				signal(b.space)
			}
			return nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.closed:
			return ErrClosed
		case <-b.space:
		}
	}
}

// Pop removes and returns the head of the queue, blocking until a value is
// available, the inbox is closed or ctx is done.
func (b *Inbox[T]) Pop(ctx context.Context) (T, error) {
	for {
		b.mu.Lock()
		if b.isClosed() {
			b.mu.Unlock()
			return stdx.Zero[T](), ErrClosed
		}
		if front := b.items.Front(); front != nil {
			value := b.items.Remove(front)
			remaining := b.items.Len()
			b.mu.Unlock()

			if b.capacity > 0 {
				signal(b.space)
			}
			if remaining > 0 {
				signal(b.ready)
			}
			return value, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return stdx.Zero[T](), ctx.Err()
		case <-b.closed:
			return stdx.Zero[T](), ErrClosed
		case <-b.ready:
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
