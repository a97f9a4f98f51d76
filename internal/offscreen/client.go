package offscreen

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/AnyUserName/saveimg/internal/messaging"
)

// Client runs conversions in the auxiliary document. It is the
// orchestrator's primary strategy.
type Client struct {
	bus     *messaging.Bus
	manager *messaging.ContextManager
	retry   messaging.RetryPolicy
}

// NewClient returns a client that creates documents through host on
// demand and talks to them over bus.
func NewClient(bus *messaging.Bus, host messaging.DocumentHost, retry messaging.RetryPolicy) *Client {
	return &Client{
		bus:     bus,
		manager: messaging.NewContextManager(host),
		retry:   retry,
	}
}

// Convert ensures the document exists, sends it CONVERT_IMAGE and decodes
// the answer. It never returns an error; failures are Failure results.
func (c *Client) Convert(ctx context.Context, req conversion.Request) conversion.Result {
	if err := c.manager.EnsureContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return conversion.Failed(conversion.Timeout, ctxErr.Error())
		}
		return conversion.Failed(conversion.ContextUnavailable, fmt.Sprintf("creating offscreen document: %v", err))
	}

	resp, err := c.bus.SendWithRetry(ctx, messaging.AddrOffscreen, messaging.ConvertImage(req), c.retry)
	switch {
	case err == nil:
	case errors.Is(err, messaging.ErrNoReceiver):
		return conversion.Failed(conversion.ContextUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return conversion.Failed(conversion.Timeout, err.Error())
	default:
		return conversion.Failed(conversion.EncodeError, err.Error())
	}

	if !resp.Success {
		kind := resp.Reason
		if kind == "" {
			kind = conversion.EncodeError
		}
		return conversion.Failed(kind, resp.Error)
	}

	mt, data, err := dataurl.Decode(resp.DataURL)
	if err != nil {
		return conversion.Failed(conversion.EncodeError, err.Error())
	}
	return conversion.Succeeded(data, mt)
}
