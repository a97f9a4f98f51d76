package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/cenkalti/backoff/v4"
)

// Address names an execution context on the bus.
type Address string

// AddrOffscreen is the address of the auxiliary document.
const AddrOffscreen Address = "offscreen"

// TabAddress returns the address of the content script in tab id.
func TabAddress(id conversion.TabID) Address {
	return Address(id.String())
}

// Bus routes messages between execution contexts. It is safe for
// concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners map[Address]*Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[Address]*Listener)}
}

// Register makes l reachable at addr.
func (b *Bus) Register(addr Address, l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[addr] = l
}

// Unregister removes the context at addr. In-flight requests still finish.
func (b *Bus) Unregister(addr Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, addr)
}

// Lookup returns the listener registered at addr.
func (b *Bus) Lookup(addr Address) (*Listener, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	l, ok := b.listeners[addr]
	return l, ok
}

// Send delivers msg to addr and waits for the answer.
func (b *Bus) Send(ctx context.Context, addr Address, msg Message) (Response, error) {
	l, ok := b.Lookup(addr)
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrNoReceiver, addr)
	}
	return l.Dispatch(ctx, msg)
}

// RetryPolicy bounds SendWithRetry.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint64
}

// DefaultRetryPolicy suits a context that is still starting up.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
	MaxAttempts:     20,
}

// SendWithRetry is Send, retried while the receiver exists but has not
// attached a listener yet. Other errors are returned immediately.
func (b *Bus) SendWithRetry(ctx context.Context, addr Address, msg Message, p RetryPolicy) (Response, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	var policy backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(eb, p.MaxAttempts)
	}

	var resp Response
	op := func() error {
		r, err := b.Send(ctx, addr, msg)
		if err != nil {
			if errors.Is(err, ErrNoListener) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return Response{}, err
	}
	return resp, nil
}
