package courier

import (
	"context"
	"sync"
	"time"

	"github.com/casualjim/courier/pkg/stdx"
)

// Future is the read side of a Promise.
type Future[T any] interface {
	Get() T
	GetTimeout(time.Duration) (T, bool)
	Wait(context.Context) (T, error)
	IsDone() bool
	Done() <-chan struct{}
}

var _ Future[struct{}] = (*Promise[struct{}])(nil)

// Promise holds the single result of a request. The first call to Resolve wins,
// later calls are ignored. Any number of goroutines may wait on it. Create
// promises with NewPromise.
type Promise[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
}

// NewPromise creates an unresolved promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Resolve stores value and releases every waiter. It reports whether this call
// performed the resolution.
func (p *Promise[T]) Resolve(value T) bool {
	var won bool
	p.once.Do(func() {
		p.value = value
		won = true
		close(p.done)
	})
	return won
}

// Get blocks until the promise is resolved. A promise that is never resolved
// blocks forever; use GetTimeout or Wait when that is a possibility.
func (p *Promise[T]) Get() T {
	<-p.done
	return p.value
}

// GetTimeout waits at most timeout for the result. The boolean is false when the
// deadline passed first.
func (p *Promise[T]) GetTimeout(timeout time.Duration) (T, bool) {
	if p.IsDone() {
		return p.value, true
	}
	if timeout <= 0 {
		return stdx.Zero[T](), false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return p.value, true
	case <-timer.C:
		// resolution and deadline may race, the result wins
		if p.IsDone() {
			return p.value, true
		}
		return stdx.Zero[T](), false
	}
}

// Wait blocks until the promise is resolved or ctx is done.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, nil
	case <-ctx.Done():
		if p.IsDone() {
			return p.value, nil
		}
		return stdx.Zero[T](), ctx.Err()
	}
}

// IsDone reports whether the promise has been resolved, without blocking.
func (p *Promise[T]) IsDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the promise is resolved.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}
