package courier

import "errors"

var (
	// ErrNotRegistered is returned by AwaitNext for a worker without an inbox.
	ErrNotRegistered = errors.New("worker is not registered")

	// ErrNoSubscribers is returned by Send when nobody can receive the request.
	// The request was dropped and no promise exists for it.
	ErrNoSubscribers = errors.New("no subscribers for request")

	// ErrAlreadySent is returned by Send for a request instance that was already
	// delivered. Every send needs a fresh request value.
	ErrAlreadySent = errors.New("request was already sent")
)
