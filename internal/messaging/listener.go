package messaging

import (
	"context"
	"fmt"
	"sync"
)

// Handler answers one message. A returned error is reported to the sender
// as an unsuccessful Response.
type Handler func(ctx context.Context, msg Message) (Response, error)

// Listener is the message handler table of one execution context.
type Listener struct {
	mu       sync.RWMutex
	handlers map[Type]Handler
}

// NewListener returns a listener with no handlers attached.
func NewListener() *Listener {
	return &Listener{handlers: make(map[Type]Handler)}
}

// Handle attaches h for messages of type t, replacing any previous handler.
func (l *Listener) Handle(t Type, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[t] = h
}

// Remove detaches the handler for t.
func (l *Listener) Remove(t Type) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, t)
}

// Handles reports whether a handler for t is attached.
func (l *Listener) Handles(t Type) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.handlers[t]
	return ok
}

type reply struct {
	resp Response
	err  error
}

// Dispatch runs the handler for msg on its own goroutine and waits for its
// answer or for ctx to end. A handler that panics yields
// ErrReceiverCrashed. When ctx ends first the handler's eventual answer is
// dropped.
func (l *Listener) Dispatch(ctx context.Context, msg Message) (Response, error) {
	l.mu.RLock()
	h, ok := l.handlers[msg.Type]
	l.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrNoListener, msg.Type)
	}
	if err := msg.Validate(); err != nil {
		return Failed(err), nil
	}

	// Buffered so a handler finishing after the caller gave up never blocks.
	done := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("%w: %v", ErrReceiverCrashed, r)}
			}
		}()
		resp, err := h(ctx, msg)
		if err != nil {
			resp = Failed(err)
		}
		done <- reply{resp: resp}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
