package fleet

import "errors"

// Domain-specific errors for stream sessions.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrStreamClosed is returned when the upstream connection closes mid-stream.
	ErrStreamClosed = errors.New("fleet: stream closed")

	// ErrSubscribeFailed is returned when the subscription request cannot be
	// sent or is not confirmed within the configured window.
	ErrSubscribeFailed = errors.New("fleet: subscription not confirmed")

	// ErrDialFailed is returned when the WebSocket connection cannot be established.
	ErrDialFailed = errors.New("fleet: dial failed")
)
