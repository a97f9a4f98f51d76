package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/AnyUserName/saveimg/internal/messaging"
)

// ErrCopy wraps clipboard failures reported by the page.
var ErrCopy = errors.New("copy failed")

// Copier hands converted images to a tab's clipboard writer. Converting
// the bytes into a type the clipboard accepts is the writer's job.
type Copier struct {
	bus     *messaging.Bus
	scripts ScriptInjector
}

// NewCopier returns a copier that reaches tabs over bus.
func NewCopier(bus *messaging.Bus, scripts ScriptInjector) *Copier {
	return &Copier{bus: bus, scripts: scripts}
}

// Copy sends res to the clipboard of tab. The page shows its own toast
// according to opts.
func (c *Copier) Copy(ctx context.Context, res conversion.Result, format conversion.Format, tab conversion.TabID, opts messaging.ToastOptions) error {
	if !res.OK() {
		return res.Err()
	}
	if err := c.scripts.EnsureContentScript(ctx, tab); err != nil {
		return fmt.Errorf("injecting content script: %w", err)
	}

	msg := messaging.CopyImageData(dataurl.Encode(res.MIMEType, res.Encoded), format, opts)
	resp, err := c.bus.Send(ctx, messaging.TabAddress(tab), msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCopy, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrCopy, resp.Error)
	}
	return nil
}
