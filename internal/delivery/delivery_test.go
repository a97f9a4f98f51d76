package delivery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AnyUserName/saveimg/internal/browser"
	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var toastOn = messaging.ToastOptions{Enabled: true, DurationMs: 2000}

type note struct {
	success bool
	message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (r *recordingNotifier) Notify(_ context.Context, success bool, msg string, _ messaging.ToastOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{success, msg})
	return nil
}

type cancelPrompt struct{}

func (cancelPrompt) Prompt(context.Context, string) (string, error) { return "", ErrPromptCanceled }

type pathPrompt string

func (p pathPrompt) Prompt(context.Context, string) (string, error) { return string(p), nil }

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "Save failed", FailureMessage(MsgSaveFailed, ""))
	assert.Equal(t, "Save failed", FailureMessage(MsgSaveFailed, "save failed"))
	assert.Equal(t, "Save failed", FailureMessage(MsgSaveFailed, "failed"))
	assert.Equal(t, "Save failed: disk full", FailureMessage(MsgSaveFailed, "Save failed: disk full"))
	assert.Equal(t, "Copy failed: Permission denied", FailureMessage(MsgCopyFailed, " Permission denied "))
	assert.Equal(t, "JPEG copied", MsgCopied(conversion.FormatJPEG))
}

func TestDownloadsUniquify(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloads(dir, nil, zerolog.Nop())

	var mu sync.Mutex
	var done []Delta
	d.OnChanged(func(delta Delta) {
		if delta.State == StateComplete {
			mu.Lock()
			done = append(done, delta)
			mu.Unlock()
		}
	})

	for i := 0; i < 3; i++ {
		_, err := d.Download(context.Background(), DownloadOptions{Data: []byte{byte(i + 1)}, Filename: "a.png"})
		require.NoError(t, err)
	}
	d.Wait()

	require.Len(t, done, 3)
	for _, name := range []string{"a.png", "a (1).png", "a (2).png"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".saveimg-*"))
	assert.Empty(t, leftovers)
}

func TestDownloadsRejectsBadNames(t *testing.T) {
	d := NewDownloads(t.TempDir(), nil, zerolog.Nop())
	for _, name := range []string{"", "../x.png", "/etc/x.png"} {
		_, err := d.Download(context.Background(), DownloadOptions{Data: []byte{1}, Filename: name})
		assert.ErrorIs(t, err, ErrInvalidFilename, name)
	}
}

func TestSaverSaved(t *testing.T) {
	dir := t.TempDir()
	n := &recordingNotifier{}
	s := NewSaver(NewDownloads(dir, nil, zerolog.Nop()), n, zerolog.Nop())

	out, err := s.Save(context.Background(), conversion.Succeeded([]byte("png"), "image/png"), "x.png", SaveOptions{Toast: toastOn})
	require.NoError(t, err)
	assert.True(t, out.Saved())
	assert.Equal(t, filepath.Join(dir, "x.png"), out.Path)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, []note{{true, "Saved."}}, n.notes)
}

func TestSaverSaveAs(t *testing.T) {
	dir := t.TempDir()
	chosen := filepath.Join(dir, "sub", "chosen.png")
	s := NewSaver(NewDownloads(dir, pathPrompt(chosen), zerolog.Nop()), nil, zerolog.Nop())

	out, err := s.Save(context.Background(), conversion.Succeeded([]byte("png"), "image/png"), "x.png", SaveOptions{SaveAs: true})
	require.NoError(t, err)
	assert.Equal(t, chosen, out.Path)
}

func TestSaverCancelled(t *testing.T) {
	n := &recordingNotifier{}
	s := NewSaver(NewDownloads(t.TempDir(), cancelPrompt{}, zerolog.Nop()), n, zerolog.Nop())

	out, err := s.Save(context.Background(), conversion.Succeeded([]byte("png"), "image/png"), "x.png", SaveOptions{SaveAs: true, Toast: toastOn})
	require.NoError(t, err)
	assert.Equal(t, StateInterrupted, out.State)
	assert.Equal(t, MsgSaveCancelled, out.Message)
	assert.Equal(t, []note{{false, "Save cancelled"}}, n.notes)
}

func TestSaverContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSaver(NewDownloads(t.TempDir(), nil, zerolog.Nop()), nil, zerolog.Nop())

	out, err := s.Save(ctx, conversion.Succeeded([]byte("png"), "image/png"), "x.png", SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, MsgSaveCancelled, out.Message)
}

func TestSaverFileFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	n := &recordingNotifier{}
	// A regular file where the download directory should be.
	s := NewSaver(NewDownloads(blocker, nil, zerolog.Nop()), n, zerolog.Nop())

	out, err := s.Save(context.Background(), conversion.Succeeded([]byte("png"), "image/png"), "x.png", SaveOptions{Toast: toastOn})
	require.Error(t, err)
	assert.False(t, out.Saved())
	assert.Equal(t, "Save failed: FILE_FAILED", out.Message)
}

func TestSaverConversionFailure(t *testing.T) {
	n := &recordingNotifier{}
	s := NewSaver(NewDownloads(t.TempDir(), nil, zerolog.Nop()), n, zerolog.Nop())

	_, err := s.Save(context.Background(), conversion.Failed(conversion.FetchError, "HTTP 404"), "x.png", SaveOptions{Toast: toastOn})
	var f *conversion.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, conversion.FetchError, f.Kind)
	assert.Equal(t, []note{{false, "Save failed: HTTP 404"}}, n.notes)
}

type clipPage struct {
	err     error
	toasts  []string
	dataURI string
}

func (p *clipPage) WriteClipboard(_ context.Context, _ conversion.TabID, dataURI string, _ conversion.Format, _ time.Duration) error {
	p.dataURI = dataURI
	return p.err
}

func (p *clipPage) ShowToast(_ context.Context, _ conversion.TabID, text string, _ bool, _ time.Duration) error {
	p.toasts = append(p.toasts, text)
	return nil
}

func TestCopier(t *testing.T) {
	bus := messaging.NewBus()
	page := &clipPage{}
	c := NewCopier(bus, browser.NewContentScripts(bus, page, zerolog.Nop()))

	res := conversion.Succeeded([]byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, c.Copy(context.Background(), res, conversion.FormatPNG, 2, toastOn))
	assert.Equal(t, "data:image/png;base64,iVBORw==", page.dataURI)
	assert.Equal(t, []string{"PNG copied"}, page.toasts)

	page.err = errors.New("Clipboard API not available")
	err := c.Copy(context.Background(), res, conversion.FormatPNG, 2, toastOn)
	assert.ErrorIs(t, err, ErrCopy)
	assert.Contains(t, err.Error(), "Clipboard API not available")

	err = c.Copy(context.Background(), conversion.Failed(conversion.NoTarget, "no tab"), conversion.FormatPNG, 2, toastOn)
	assert.Error(t, err)
}

type tabs struct {
	id  conversion.TabID
	url string
}

func (t tabs) ActiveTabID(context.Context) (conversion.TabID, bool) { return t.id, t.id > 0 }
func (t tabs) TabURL(context.Context, conversion.TabID) (string, error) {
	return t.url, nil
}

func TestPageNotifier(t *testing.T) {
	bus := messaging.NewBus()
	page := &clipPage{}
	scripts := browser.NewContentScripts(bus, page, zerolog.Nop())

	n := NewPageNotifier(bus, tabs{id: 5, url: "https://example.com/"}, scripts)
	require.NoError(t, n.Notify(context.Background(), true, "Saved.", toastOn))
	assert.Equal(t, []string{"Saved."}, page.toasts)

	n = NewPageNotifier(bus, tabs{id: 6, url: "chrome://settings"}, scripts)
	assert.ErrorIs(t, n.Notify(context.Background(), true, "Saved.", toastOn), ErrNotHTTPPage)

	n = NewPageNotifier(bus, tabs{}, scripts)
	assert.NoError(t, n.Notify(context.Background(), true, "Saved.", toastOn))
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := Notifiers{NewTerminalNotifier(&buf)}

	require.NoError(t, n.Notify(context.Background(), true, "Saved.", toastOn))
	require.NoError(t, n.Notify(context.Background(), false, "Save failed", toastOn))
	require.NoError(t, n.Notify(context.Background(), false, "hidden", messaging.ToastOptions{}))

	assert.Contains(t, buf.String(), "✓ Saved.")
	assert.Contains(t, buf.String(), "✗ Save failed")
	assert.NotContains(t, buf.String(), "hidden")
}
