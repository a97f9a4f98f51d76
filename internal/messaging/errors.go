package messaging

import "errors"

var (
	// ErrNoReceiver is returned when the target context does not exist.
	ErrNoReceiver = errors.New("could not establish connection: receiving end does not exist")

	// ErrNoListener is returned when the target context exists but has not
	// attached a handler for the message type yet.
	ErrNoListener = errors.New("receiving context has no listener for this message")

	// ErrReceiverCrashed is returned when the receiving context failed
	// while handling a request.
	ErrReceiverCrashed = errors.New("message port closed before a response was received")
)
