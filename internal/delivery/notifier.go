package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/filename"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/fatih/color"
)

// Notifier reports an outcome to the user.
type Notifier interface {
	Notify(ctx context.Context, success bool, message string, opts messaging.ToastOptions) error
}

// TerminalNotifier prints outcomes, green for success and red for failure.
type TerminalNotifier struct {
	w       io.Writer
	success *color.Color
	failure *color.Color
}

// NewTerminalNotifier writes to w.
func NewTerminalNotifier(w io.Writer) *TerminalNotifier {
	return &TerminalNotifier{
		w:       w,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
	}
}

func (n *TerminalNotifier) Notify(_ context.Context, success bool, message string, opts messaging.ToastOptions) error {
	if !opts.Enabled {
		return nil
	}
	if success {
		_, err := n.success.Fprintf(n.w, "  ✓ %s\n", message)
		return err
	}
	_, err := n.failure.Fprintf(n.w, "  ✗ %s\n", message)
	return err
}

// ActiveTab exposes the focused tab and its location.
type ActiveTab interface {
	ActiveTabID(ctx context.Context) (conversion.TabID, bool)
	TabURL(ctx context.Context, id conversion.TabID) (string, error)
}

// ScriptInjector makes sure a tab runs the content script.
type ScriptInjector interface {
	EnsureContentScript(ctx context.Context, id conversion.TabID) error
}

// ErrNotHTTPPage is returned when the target tab is not showing an
// http(s) page. Toasts and copies are only delivered to such pages.
var ErrNotHTTPPage = errors.New("delivery: tab is not an http(s) page")

// PageNotifier shows outcomes as toasts in the focused tab.
type PageNotifier struct {
	bus     *messaging.Bus
	tabs    ActiveTab
	scripts ScriptInjector
}

// NewPageNotifier sends SHOW_TOAST over bus to the focused tab.
func NewPageNotifier(bus *messaging.Bus, tabs ActiveTab, scripts ScriptInjector) *PageNotifier {
	return &PageNotifier{bus: bus, tabs: tabs, scripts: scripts}
}

func (n *PageNotifier) Notify(ctx context.Context, success bool, message string, opts messaging.ToastOptions) error {
	id, ok := n.tabs.ActiveTabID(ctx)
	if !ok {
		return nil
	}
	u, err := n.tabs.TabURL(ctx, id)
	if err != nil {
		return err
	}
	if !filename.IsHTTPLike(u) {
		return ErrNotHTTPPage
	}
	if err := n.scripts.EnsureContentScript(ctx, id); err != nil {
		return err
	}
	_, err = n.bus.Send(ctx, messaging.TabAddress(id), messaging.ShowToast(success, message, &opts))
	return err
}

// Notifiers fans a notification out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, success bool, message string, opts messaging.ToastOptions) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, success, message, opts); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
