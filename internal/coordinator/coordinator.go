// Package coordinator is the long-lived background process: it turns the
// user's save and copy actions into conversion requests, runs them through
// the orchestrator and hands the results to delivery.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/delivery"
	"github.com/AnyUserName/saveimg/internal/filename"
	"github.com/AnyUserName/saveimg/internal/settings"
	"github.com/rs/zerolog"
)

var (
	// ErrNotHTTPPage is returned when an action starts from a page that is
	// not served over http(s).
	ErrNotHTTPPage = errors.New("coordinator: page is not http(s)")

	// ErrNoImage is returned when an action has no image URL.
	ErrNoImage = errors.New("coordinator: no image URL")

	// ErrNoTarget is returned by CopyImage when no tab can receive the image.
	ErrNoTarget = errors.New("coordinator: no tab to copy into")

	// ErrUnsupported is returned for an action whose delivery path is not
	// configured.
	ErrUnsupported = errors.New("coordinator: action not configured")
)

// Converter is the conversion entry point.
type Converter interface {
	Convert(ctx context.Context, req conversion.Request, hint *conversion.TabID) conversion.Result
}

// SettingsSource returns the current user settings.
type SettingsSource interface {
	Get() settings.Settings
}

// TabResolver reports the focused tab.
type TabResolver interface {
	ActiveTabID(ctx context.Context) (conversion.TabID, bool)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSaver enables SaveImage.
func WithSaver(s *delivery.Saver) Option { return func(c *Coordinator) { c.saver = s } }

// WithCopier enables CopyImage; tabs resolves the target when no hint is given.
func WithCopier(cp *delivery.Copier, tabs TabResolver) Option {
	return func(c *Coordinator) {
		c.copier = cp
		c.tabs = tabs
	}
}

// WithNotifier reports copy failures that happen before the page is reached.
func WithNotifier(n delivery.Notifier) Option { return func(c *Coordinator) { c.notifier = n } }

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option { return func(c *Coordinator) { c.log = log } }

// WithClock overrides time.Now for filenames.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// Coordinator is safe for concurrent use.
type Coordinator struct {
	conv     Converter
	settings SettingsSource
	saver    *delivery.Saver
	copier   *delivery.Copier
	tabs     TabResolver
	notifier delivery.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// New returns a coordinator converting through conv with settings from src.
func New(conv Converter, src SettingsSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		conv:     conv,
		settings: src,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Converter returns the conversion entry point.
func (c *Coordinator) Converter() Converter { return c.conv }

// Settings returns the settings currently in effect.
func (c *Coordinator) Settings() settings.Settings { return c.settings.Get() }

// MenuTitles returns the save and copy action titles for the current format.
func (c *Coordinator) MenuTitles() (save, copy string) {
	return settings.MenuTitles(c.settings.Get().OutputFormat)
}

// Convert converts uri with the current settings.
func (c *Coordinator) Convert(ctx context.Context, uri string, hint *conversion.TabID) (conversion.Request, conversion.Result) {
	req := c.settings.Get().Request(uri)
	return req, c.conv.Convert(ctx, req, hint)
}

// SaveResult describes a finished save action.
type SaveResult struct {
	Request  conversion.Request
	Result   conversion.Result
	Filename string
	Outcome  delivery.Outcome
	Took     time.Duration
}

// SaveImage converts imageURL, found on pageURL, and saves it under a name
// generated from the filename pattern.
func (c *Coordinator) SaveImage(ctx context.Context, imageURL, pageURL string) (SaveResult, error) {
	if err := c.guard(imageURL, pageURL); err != nil {
		return SaveResult{}, err
	}
	if c.saver == nil {
		return SaveResult{}, fmt.Errorf("%w: save", ErrUnsupported)
	}

	s := c.settings.Get()
	start := time.Now()
	req, res := c.Convert(ctx, imageURL, nil)
	out := SaveResult{Request: req, Result: res}

	if res.OK() {
		out.Filename = filename.Generate(s.FilenamePattern, filename.Input{
			ImageURL: imageURL,
			PageURL:  pageURL,
			Format:   req.Format,
			Data:     res.Encoded,
			Now:      c.now(),
		})
	}
	outcome, err := c.saver.Save(ctx, res, out.Filename, delivery.SaveOptions{
		SaveAs: s.SaveAsPrompt,
		Toast:  s.ToastOptions(),
	})
	out.Outcome = outcome
	out.Took = time.Since(start)

	c.log.Info().
		Str("image", imageURL).
		Str("state", string(outcome.State)).
		Str("path", outcome.Path).
		Dur("took", out.Took).
		Msg(outcome.Message)
	return out, err
}

// CopyResult describes a finished copy action.
type CopyResult struct {
	Request conversion.Request
	Result  conversion.Result
	Tab     conversion.TabID
	Took    time.Duration
}

// CopyImage converts imageURL and writes it to the clipboard of hint, or
// of the focused tab when hint is nil.
func (c *Coordinator) CopyImage(ctx context.Context, imageURL, pageURL string, hint *conversion.TabID) (CopyResult, error) {
	if err := c.guard(imageURL, pageURL); err != nil {
		return CopyResult{}, err
	}
	if c.copier == nil {
		return CopyResult{}, fmt.Errorf("%w: copy", ErrUnsupported)
	}

	s := c.settings.Get()
	start := time.Now()
	req, res := c.Convert(ctx, imageURL, hint)
	out := CopyResult{Request: req, Result: res}

	if !res.OK() {
		c.notifyFailure(ctx, res.Failure.Detail, s)
		out.Took = time.Since(start)
		return out, res.Err()
	}

	tab, ok := c.target(ctx, hint)
	if !ok {
		c.notifyFailure(ctx, "no target tab available", s)
		out.Took = time.Since(start)
		return out, ErrNoTarget
	}
	out.Tab = tab

	err := c.copier.Copy(ctx, res, req.Format, tab, s.ToastOptions())
	out.Took = time.Since(start)
	if err != nil {
		c.log.Warn().Err(err).Stringer("tab", tab).Str("image", imageURL).Msg("copy failed")
		return out, err
	}
	c.log.Info().Stringer("tab", tab).Str("image", imageURL).Dur("took", out.Took).Msg(delivery.MsgCopied(req.Format))
	return out, nil
}

func (c *Coordinator) target(ctx context.Context, hint *conversion.TabID) (conversion.TabID, bool) {
	if hint != nil && *hint > 0 {
		return *hint, true
	}
	if c.tabs == nil {
		return 0, false
	}
	return c.tabs.ActiveTabID(ctx)
}

func (c *Coordinator) guard(imageURL, pageURL string) error {
	if imageURL == "" {
		return ErrNoImage
	}
	if !filename.IsHTTPLike(pageURL) {
		return fmt.Errorf("%w: %q", ErrNotHTTPPage, pageURL)
	}
	return nil
}

func (c *Coordinator) notifyFailure(ctx context.Context, detail string, s settings.Settings) {
	opts := s.ToastOptions()
	if c.notifier == nil || !opts.Enabled {
		return
	}
	if err := c.notifier.Notify(ctx, false, delivery.FailureMessage(delivery.MsgCopyFailed, detail), opts); err != nil {
		c.log.Debug().Err(err).Msg("notification not delivered")
	}
}
