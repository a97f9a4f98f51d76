package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
)

// Clipboard writes images into a tab's clipboard.
type Clipboard interface {
	WriteClipboard(ctx context.Context, id conversion.TabID, dataURI string, format conversion.Format, focusWait time.Duration) error
}

// Toaster shows transient notifications in a tab.
type Toaster interface {
	ShowToast(ctx context.Context, id conversion.TabID, text string, isError bool, d time.Duration) error
}

// Page is what a content script needs from its tab.
type Page interface {
	Clipboard
	Toaster
}

// Minimum duration of a failure toast.
const minErrorToast = 3 * time.Second

// ContentScripts injects the per-tab listener that answers PING,
// COPY_IMAGE_DATA and SHOW_TOAST. Each tab gets at most one listener.
type ContentScripts struct {
	bus  *messaging.Bus
	page Page
	log  zerolog.Logger

	mu       sync.Mutex
	injected map[conversion.TabID]bool
}

// NewContentScripts returns an injector that registers listeners on bus
// and drives tabs through page.
func NewContentScripts(bus *messaging.Bus, page Page, log zerolog.Logger) *ContentScripts {
	return &ContentScripts{
		bus:      bus,
		page:     page,
		log:      log,
		injected: make(map[conversion.TabID]bool),
	}
}

// EnsureContentScript makes sure tab id answers PING. A tab that already
// answers is left alone.
func (c *ContentScripts) EnsureContentScript(ctx context.Context, id conversion.TabID) error {
	addr := messaging.TabAddress(id)
	if resp, err := c.bus.Send(ctx, addr, messaging.Ping()); err == nil && resp.Pong {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.injected[id] {
		return nil
	}
	c.injected[id] = true
	c.bus.Register(addr, c.listener(id))
	c.log.Debug().Stringer("tab", id).Msg("content script injected")
	return nil
}

// Remove detaches the content script of tab id, typically after the tab
// was closed.
func (c *ContentScripts) Remove(id conversion.TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.injected, id)
	c.bus.Unregister(messaging.TabAddress(id))
}

func (c *ContentScripts) listener(id conversion.TabID) *messaging.Listener {
	l := messaging.NewListener()
	l.Handle(messaging.TypePing, func(context.Context, messaging.Message) (messaging.Response, error) {
		return messaging.Response{Success: true, Pong: true}, nil
	})
	l.Handle(messaging.TypeCopyImageData, func(ctx context.Context, msg messaging.Message) (messaging.Response, error) {
		return c.copy(ctx, id, msg.Copy), nil
	})
	l.Handle(messaging.TypeShowToast, func(ctx context.Context, msg messaging.Message) (messaging.Response, error) {
		c.toast(ctx, id, msg.Toast)
		return messaging.Response{Success: true, OK: true}, nil
	})
	return l
}

func (c *ContentScripts) copy(ctx context.Context, id conversion.TabID, p *messaging.CopyPayload) messaging.Response {
	opts := p.Options.Normalized()
	format := conversion.ParseFormat(string(p.Format))
	duration := time.Duration(opts.DurationMs) * time.Millisecond

	err := c.page.WriteClipboard(ctx, id, p.DataURL, format, time.Duration(opts.FocusWaitMs)*time.Millisecond)
	if err != nil {
		if opts.Enabled {
			c.show(ctx, id, "Copy failed: "+err.Error(), true, max(duration, minErrorToast))
		}
		return messaging.Response{Success: false, Error: err.Error()}
	}
	if opts.Enabled {
		c.show(ctx, id, fmt.Sprintf("%s copied", format.Label()), false, duration)
	}
	return messaging.Response{Success: true}
}

func (c *ContentScripts) toast(ctx context.Context, id conversion.TabID, p *messaging.ToastPayload) {
	opts := messaging.ToastOptions{Enabled: true, DurationMs: 2000}
	if p.Options != nil {
		opts = *p.Options
	}
	opts = opts.Normalized()
	if !opts.Enabled {
		return
	}
	text := p.Message
	if text == "" {
		text = "Saved."
	}
	c.show(ctx, id, text, !p.Success, time.Duration(opts.DurationMs)*time.Millisecond)
}

func (c *ContentScripts) show(ctx context.Context, id conversion.TabID, text string, isError bool, d time.Duration) {
	if err := c.page.ShowToast(ctx, id, text, isError, d); err != nil {
		c.log.Warn().Err(err).Stringer("tab", id).Msg("toast failed")
	}
}
