package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/AnyUserName/saveimg/internal/browser"
	"github.com/AnyUserName/saveimg/internal/config"
	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/coordinator"
	"github.com/AnyUserName/saveimg/internal/delivery"
	"github.com/AnyUserName/saveimg/internal/fetcher"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/AnyUserName/saveimg/internal/offscreen"
	"github.com/AnyUserName/saveimg/internal/orchestrator"
	"github.com/AnyUserName/saveimg/internal/report"
	"github.com/AnyUserName/saveimg/internal/settings"
	"github.com/rs/zerolog"
)

var errNoBrowser = errors.New("page context unavailable: browser disabled or not started")

// app is the wired process: bus, both execution contexts and the
// coordinator on top.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	bus       *messaging.Bus
	runtime   *offscreen.Runtime
	browser   *browser.Browser
	scripts   *browser.ContentScripts
	store     *settings.Store
	downloads *delivery.Downloads
	coord     *coordinator.Coordinator
}

type appOptions struct {
	out      io.Writer // terminal notifications
	dir      string    // overrides cfg.Download.Dir
	preset   string    // overrides cfg.Settings.Preset
	prompter delivery.Prompter
	adjust   func(*settings.Settings) // command-line overrides
}

func newApp(cfg *config.Config, log zerolog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log, bus: messaging.NewBus()}

	preset := cfg.Settings.Preset
	if opts.preset != "" {
		preset = opts.preset
	}
	store, err := settings.NewStore(cfg.Settings.File, settings.Preset(preset), log)
	if err != nil {
		return nil, err
	}
	a.store = store

	fetch := fetcher.New(fetcher.Config{
		Timeout:           cfg.Fetch.Timeout,
		MaxBytes:          cfg.Fetch.MaxBytes,
		UserAgent:         cfg.Browser.UserAgent,
		CredentialHeaders: cfg.Fetch.Headers,
	})

	if cfg.Browser.Enabled {
		b, err := browser.New(log, browserOptions(cfg.Browser)...)
		if err != nil {
			log.Warn().Err(err).Msg("browser not started, page fallback disabled")
		} else {
			a.browser = b
			a.scripts = browser.NewContentScripts(a.bus, b, log)
		}
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithPrimaryTimeout(cfg.Platform.PrimaryTimeout),
		orchestrator.WithLogger(log),
	}
	if cfg.Platform.Offscreen {
		a.runtime = offscreen.NewRuntime(a.bus, offscreen.Config{
			Warmup:  cfg.Platform.Warmup,
			Fetcher: fetch,
			Logger:  log,
		})
		orchOpts = append(orchOpts, orchestrator.WithPrimary(
			offscreen.NewClient(a.bus, a.runtime, messaging.DefaultRetryPolicy),
		))
	}

	var orch *orchestrator.Orchestrator
	notifiers := delivery.Notifiers{}
	if opts.out != nil {
		notifiers = append(notifiers, delivery.NewTerminalNotifier(opts.out))
	}
	coordOpts := []coordinator.Option{coordinator.WithLogger(log)}
	if a.browser != nil {
		orch = orchestrator.New(a.browser, fetch, a.browser, orchOpts...)
		notifiers = append(notifiers, delivery.NewPageNotifier(a.bus, a.browser, a.scripts))
		coordOpts = append(coordOpts, coordinator.WithCopier(delivery.NewCopier(a.bus, a.scripts), a.browser))
	} else {
		orch = orchestrator.New(noTabs{}, fetch, noPage{}, orchOpts...)
	}

	dir := cfg.Download.Dir
	if opts.dir != "" {
		dir = opts.dir
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	a.downloads = delivery.NewDownloads(dir, opts.prompter, log)
	coordOpts = append(coordOpts,
		coordinator.WithSaver(delivery.NewSaver(a.downloads, notifiers, log)),
		coordinator.WithNotifier(notifiers),
	)

	var src coordinator.SettingsSource = store
	if opts.adjust != nil {
		src = adjusted{store: store, fn: opts.adjust}
	}
	a.coord = coordinator.New(orch, src, coordOpts...)
	store.OnChange(func(_, updated settings.Settings) {
		save, cp := settings.MenuTitles(updated.OutputFormat)
		log.Info().Str("save", save).Str("copy", cp).Msg("settings changed")
	})
	return a, nil
}

// openPage loads url in a browser tab so the page fallback and the
// clipboard have a target.
func (a *app) openPage(ctx context.Context, url string) (conversion.TabID, error) {
	if a.browser == nil {
		return 0, errNoBrowser
	}
	id, err := a.browser.OpenTab(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := a.scripts.EnsureContentScript(ctx, id); err != nil {
		return 0, fmt.Errorf("content script: %w", err)
	}
	return id, nil
}

func (a *app) platform() *report.Platform {
	return &report.Platform{
		Offscreen:        a.runtime != nil,
		PrimaryTimeoutMs: a.cfg.Platform.PrimaryTimeout.Milliseconds(),
		Browser:          a.browser != nil,
	}
}

// Close waits for pending downloads and releases both contexts.
func (a *app) Close() {
	a.downloads.Wait()
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.log.Debug().Err(err).Msg("closing browser")
		}
	}
}

func browserOptions(c config.BrowserConfig) []browser.Option {
	opts := []browser.Option{
		browser.WithHeadless(c.Headless),
		browser.WithTimeout(c.Timeout),
	}
	if c.ChromePath != "" {
		opts = append(opts, browser.WithChromePath(c.ChromePath))
	}
	if c.AutoDownload {
		opts = append(opts, browser.WithAutoDownload())
	}
	if c.NoSandbox {
		opts = append(opts, browser.WithNoSandbox())
	}
	if c.UserAgent != "" {
		opts = append(opts, browser.WithUserAgent(c.UserAgent))
	}
	return opts
}

type noTabs struct{}

func (noTabs) ActiveTabID(context.Context) (conversion.TabID, bool) { return 0, false }

type noPage struct{}

func (noPage) ConvertInTab(context.Context, conversion.TabID, string, conversion.Request) ([]byte, string, error) {
	return nil, "", errNoBrowser
}

// adjusted applies command-line overrides on top of the stored settings.
type adjusted struct {
	store *settings.Store
	fn    func(*settings.Settings)
}

func (a adjusted) Get() settings.Settings {
	s := a.store.Get()
	a.fn(&s)
	return s.Normalize()
}
