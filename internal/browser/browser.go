// Package browser drives a headless Chrome whose tabs serve as the
// page-injected execution context: code evaluated inside a tab decodes,
// resizes and re-encodes images, writes the clipboard and shows toasts.
package browser

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Browser manages a headless browser and its tabs. It is safe for
// concurrent use. Call Close to release the browser process.
type Browser struct {
	cfg           config
	log           zerolog.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	nextID conversion.TabID
	tabs   map[conversion.TabID]*tab
	// focus holds tab ids in activation order; the last one is focused.
	focus []conversion.TabID
}

// New starts a headless browser. Errors starting it surface here.
func New(log zerolog.Logger, opts ...Option) (*Browser, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.chromePath == "" && cfg.autoDownload {
		path, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if cfg.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(cfg.userAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: starting: %w", err)
	}

	return &Browser{
		cfg:           cfg,
		log:           log.With().Str("context", string(conversion.ContextPageInjected)).Logger(),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          make(map[conversion.TabID]*tab),
	}, nil
}

// Close releases the browser process and all tabs. Close is idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.tabs {
		t.cancel()
	}
	b.tabs = nil
	b.focus = nil
	b.browserCancel()
	b.allocCancel()
	return nil
}

// OpenTab opens url in a new tab, waits for its body and focuses it.
func (b *Browser) OpenTab(ctx context.Context, url string) (conversion.TabID, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, ErrClosed
	}
	b.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	// The first Run creates the target and must use the tab context itself.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return 0, fmt.Errorf("browser: creating tab: %w", err)
	}
	t := &tab{ctx: tabCtx, cancel: tabCancel}

	runCtx, cancel := b.bound(ctx, t)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		tabCancel()
		return 0, fmt.Errorf("browser: opening %s: %w", url, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		tabCancel()
		return 0, ErrClosed
	}
	b.nextID++
	id := b.nextID
	b.tabs[id] = t
	b.focus = append(b.focus, id)
	b.log.Debug().Int("tab", int(id)).Str("url", url).Msg("tab opened")
	return id, nil
}

// CloseTab closes tab id.
func (b *Browser) CloseTab(id conversion.TabID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTab, id)
	}
	t.cancel()
	delete(b.tabs, id)
	b.focus = slices.DeleteFunc(b.focus, func(v conversion.TabID) bool { return v == id })
	return nil
}

// Activate brings tab id to the front and makes it the focused tab.
func (b *Browser) Activate(ctx context.Context, id conversion.TabID) error {
	if err := b.run(ctx, id, page.BringToFront()); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.focus = slices.DeleteFunc(b.focus, func(v conversion.TabID) bool { return v == id })
	b.focus = append(b.focus, id)
	return nil
}

// ActiveTabID returns the focused tab, if any.
func (b *Browser) ActiveTabID(_ context.Context) (conversion.TabID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || len(b.focus) == 0 {
		return 0, false
	}
	return b.focus[len(b.focus)-1], true
}

// TabURL returns the current location of tab id.
func (b *Browser) TabURL(ctx context.Context, id conversion.TabID) (string, error) {
	var loc string
	if err := b.run(ctx, id, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (b *Browser) lookup(id conversion.TabID) (*tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	t, ok := b.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoTab, id)
	}
	return t, nil
}

// bound derives a context from the tab that also ends with ctx and after
// the configured timeout.
func (b *Browser) bound(ctx context.Context, t *tab) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if b.cfg.timeout > 0 {
		runCtx, cancel = context.WithTimeout(t.ctx, b.cfg.timeout)
	} else {
		runCtx, cancel = context.WithCancel(t.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (b *Browser) run(ctx context.Context, id conversion.TabID, actions ...chromedp.Action) error {
	t, err := b.lookup(id)
	if err != nil {
		return err
	}
	runCtx, cancel := b.bound(ctx, t)
	defer cancel()

	start := time.Now()
	err = chromedp.Run(runCtx, actions...)
	b.log.Trace().Int("tab", int(id)).Dur("took", time.Since(start)).Err(err).Msg("in-tab run")
	return err
}
