// Package orchestrator decides where an image is converted. The primary
// strategy runs in the auxiliary document under a fixed timeout; when it is
// unavailable, slow or failing, the coordinator fetches the bytes itself
// and has a browser tab decode and re-encode them.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/rs/zerolog"
)

// DefaultPrimaryTimeout bounds the primary strategy.
const DefaultPrimaryTimeout = 3000 * time.Millisecond

// Primary converts an image in the auxiliary execution context.
type Primary interface {
	Convert(ctx context.Context, req conversion.Request) conversion.Result
}

// TabResolver reports the currently focused tab.
type TabResolver interface {
	ActiveTabID(ctx context.Context) (conversion.TabID, bool)
}

// Fetcher retrieves raw image bytes on behalf of the coordinator.
type Fetcher interface {
	FetchBytes(ctx context.Context, uri string, withCredentials bool) ([]byte, string, error)
}

// PageExecutor decodes, resizes and re-encodes a data URI inside a tab.
type PageExecutor interface {
	ConvertInTab(ctx context.Context, id conversion.TabID, dataURI string, req conversion.Request) ([]byte, string, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPrimary enables the primary strategy. Without it every conversion
// goes straight to the fallback.
func WithPrimary(p Primary) Option {
	return func(o *Orchestrator) {
		o.primary = p
	}
}

// WithPrimaryTimeout overrides DefaultPrimaryTimeout.
func WithPrimaryTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-attempt records.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	primary Primary
	timeout time.Duration
	tabs    TabResolver
	fetcher Fetcher
	page    PageExecutor
	log     zerolog.Logger
}

// New returns an orchestrator whose fallback uses tabs, f and page.
func New(tabs TabResolver, f Fetcher, page PageExecutor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		timeout: DefaultPrimaryTimeout,
		tabs:    tabs,
		fetcher: f,
		page:    page,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Convert runs req through the primary strategy and, if that does not
// succeed, through the fallback. hint names the tab used by the fallback;
// nil means the focused tab. Convert never panics and reports every
// problem as a Failure result.
func (o *Orchestrator) Convert(ctx context.Context, req conversion.Request, hint *conversion.TabID) conversion.Result {
	req = req.Normalized()

	primary := o.runPrimary(ctx, req)
	if primary.OK() {
		return primary
	}

	fallback := o.runFallback(ctx, req, hint)
	if !fallback.OK() {
		o.log.Warn().
			Str("uri", logURI(req.URI)).
			Str("primary", string(primary.Failure.Kind)).
			Str("fallback", string(fallback.Failure.Kind)).
			Msg("conversion failed")
	}
	return fallback
}

func (o *Orchestrator) runPrimary(ctx context.Context, req conversion.Request) conversion.Result {
	if o.primary == nil {
		return conversion.Failed(conversion.ContextUnavailable, "primary context not available on this platform")
	}

	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// Buffered so the attempt can finish after the race is decided.
	done := make(chan conversion.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- conversion.Failed(conversion.EncodeError, fmt.Sprintf("primary strategy crashed: %v", r))
			}
		}()
		done <- o.primary.Convert(pctx, req)
	}()

	var res conversion.Result
	select {
	case res = <-done:
	case <-pctx.Done():
		res = conversion.Failed(conversion.Timeout, fmt.Sprintf("primary context did not answer within %s", o.timeout))
	}
	o.logAttempt(conversion.ContextPrimaryAuxiliary, start, res)
	return res
}

func (o *Orchestrator) runFallback(ctx context.Context, req conversion.Request, hint *conversion.TabID) (res conversion.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = conversion.Failed(conversion.EncodeError, fmt.Sprintf("fallback strategy crashed: %v", r))
		}
		o.logAttempt(conversion.ContextPageInjected, start, res)
	}()

	tab, ok := o.resolveTab(ctx, hint)
	if !ok {
		return conversion.Failed(conversion.NoTarget, "no tab available for in-page conversion")
	}

	data, mt, err := o.fetcher.FetchBytes(ctx, req.URI, req.WithCredentials)
	if err != nil {
		return conversion.Failed(conversion.FetchError, err.Error())
	}

	encoded, outType, err := o.page.ConvertInTab(ctx, tab, dataurl.Encode(mt, data), req)
	if err != nil {
		return conversion.Failed(conversion.EncodeError, err.Error())
	}
	if outType == "" {
		outType = req.Format.MIMEType()
	}
	return conversion.Succeeded(encoded, outType)
}

func (o *Orchestrator) resolveTab(ctx context.Context, hint *conversion.TabID) (conversion.TabID, bool) {
	if hint != nil && *hint > 0 {
		return *hint, true
	}
	if o.tabs == nil {
		return 0, false
	}
	id, ok := o.tabs.ActiveTabID(ctx)
	return id, ok && id > 0
}

func (o *Orchestrator) logAttempt(ec conversion.ExecutionContext, start time.Time, res conversion.Result) {
	ev := o.log.Debug().Str("strategy", string(ec)).Dur("took", time.Since(start))
	if res.OK() {
		ev.Str("mime", res.MIMEType).Int("bytes", len(res.Encoded)).Msg("attempt succeeded")
		return
	}
	ev.Str("reason", string(res.Failure.Kind)).Str("detail", res.Failure.Detail).Msg("attempt failed")
}

// logURI keeps data URIs out of log lines.
func logURI(uri string) string {
	if dataurl.IsDataURL(uri) {
		return "data:…"
	}
	return uri
}
