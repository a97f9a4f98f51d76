package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toastCall struct {
	text    string
	isError bool
	d       time.Duration
}

type fakePage struct {
	mu        sync.Mutex
	copyErr   error
	copied    []conversion.Format
	focusWait time.Duration
	toasts    []toastCall
}

func (p *fakePage) WriteClipboard(_ context.Context, _ conversion.TabID, _ string, f conversion.Format, wait time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focusWait = wait
	if p.copyErr != nil {
		return p.copyErr
	}
	p.copied = append(p.copied, f)
	return nil
}

func (p *fakePage) ShowToast(_ context.Context, _ conversion.TabID, text string, isError bool, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toasts = append(p.toasts, toastCall{text, isError, d})
	return nil
}

func setupContentScript(t *testing.T, page *fakePage) (*messaging.Bus, messaging.Address) {
	t.Helper()
	bus := messaging.NewBus()
	cs := NewContentScripts(bus, page, zerolog.Nop())
	require.NoError(t, cs.EnsureContentScript(context.Background(), 7))
	return bus, messaging.TabAddress(7)
}

func TestContentScriptPing(t *testing.T) {
	bus, addr := setupContentScript(t, &fakePage{})
	resp, err := bus.Send(context.Background(), addr, messaging.Ping())
	require.NoError(t, err)
	assert.True(t, resp.Pong)
}

func TestContentScriptInjectedOnce(t *testing.T) {
	bus := messaging.NewBus()
	cs := NewContentScripts(bus, &fakePage{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, cs.EnsureContentScript(ctx, 3))
	first, ok := bus.Lookup(messaging.TabAddress(3))
	require.True(t, ok)
	require.NoError(t, cs.EnsureContentScript(ctx, 3))
	second, _ := bus.Lookup(messaging.TabAddress(3))
	assert.Same(t, first, second)

	cs.Remove(3)
	_, ok = bus.Lookup(messaging.TabAddress(3))
	assert.False(t, ok)
}

func TestContentScriptCopySuccess(t *testing.T) {
	page := &fakePage{}
	bus, addr := setupContentScript(t, page)

	opts := messaging.ToastOptions{Enabled: true, DurationMs: 1500, FocusWaitMs: 900}
	resp, err := bus.Send(context.Background(), addr, messaging.CopyImageData("data:image/jpeg;base64,AAAA", conversion.FormatJPEG, opts))
	require.NoError(t, err)
	assert.True(t, resp.Success)

	assert.Equal(t, []conversion.Format{conversion.FormatJPEG}, page.copied)
	assert.Equal(t, 500*time.Millisecond, page.focusWait)
	require.Len(t, page.toasts, 1)
	assert.Equal(t, toastCall{"JPEG copied", false, 1500 * time.Millisecond}, page.toasts[0])
}

func TestContentScriptCopyFailure(t *testing.T) {
	page := &fakePage{copyErr: errors.New("Permission denied - try clicking on the page first")}
	bus, addr := setupContentScript(t, page)

	opts := messaging.ToastOptions{Enabled: true, DurationMs: 1000}
	resp, err := bus.Send(context.Background(), addr, messaging.CopyImageData("data:image/png;base64,AAAA", conversion.FormatPNG, opts))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Permission denied")

	require.Len(t, page.toasts, 1)
	assert.True(t, page.toasts[0].isError)
	assert.Equal(t, 3*time.Second, page.toasts[0].d)
	assert.Equal(t, "Copy failed: Permission denied - try clicking on the page first", page.toasts[0].text)
}

func TestContentScriptToastDisabled(t *testing.T) {
	page := &fakePage{}
	bus, addr := setupContentScript(t, page)

	resp, err := bus.Send(context.Background(), addr, messaging.ShowToast(true, "Saved.", &messaging.ToastOptions{Enabled: false}))
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Empty(t, page.toasts)

	resp, err = bus.Send(context.Background(), addr, messaging.ShowToast(false, "Save failed", nil))
	require.NoError(t, err)
	assert.True(t, resp.OK)
	require.Len(t, page.toasts, 1)
	assert.Equal(t, toastCall{"Save failed", true, 2 * time.Second}, page.toasts[0])
}
