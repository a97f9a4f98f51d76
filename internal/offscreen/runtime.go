// Package offscreen implements the auxiliary document: an isolated,
// lazily created execution context that fetches, resizes and re-encodes
// images on request of the coordinator.
package offscreen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AnyUserName/saveimg/internal/encoder"
	"github.com/AnyUserName/saveimg/internal/fetcher"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
)

// ErrDocumentExists is returned by CreateDocument when a document is
// already open. Only one auxiliary document may exist at a time.
var ErrDocumentExists = errors.New("offscreen: only a single offscreen document may be created")

// Config holds runtime parameters.
type Config struct {
	// Warmup delays attaching the message handler after creation.
	Warmup time.Duration
	// Fetcher retrieves source images. Required.
	Fetcher *fetcher.Fetcher
	// Canvas re-encodes bitmaps. Nil uses encoder.NewCanvas(nil).
	Canvas *encoder.Canvas
	Logger zerolog.Logger
}

// Runtime is the host that owns the auxiliary document's lifetime.
type Runtime struct {
	cfg Config
	bus *messaging.Bus

	mu  sync.Mutex
	doc *Document
}

// NewRuntime returns a runtime that registers documents on bus.
func NewRuntime(bus *messaging.Bus, cfg Config) *Runtime {
	if cfg.Canvas == nil {
		cfg.Canvas = encoder.NewCanvas(nil)
	}
	return &Runtime{cfg: cfg, bus: bus}
}

// HasDocument reports whether the auxiliary document exists.
func (r *Runtime) HasDocument() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc != nil
}

// CreateDocument opens the auxiliary document. Its listener is reachable
// on the bus at once; the convert handler is attached after the warm-up.
func (r *Runtime) CreateDocument(ctx context.Context) error {
	r.mu.Lock()
	if r.doc != nil {
		r.mu.Unlock()
		return ErrDocumentExists
	}
	doc := newDocument(r.cfg)
	r.doc = doc
	r.mu.Unlock()

	r.bus.Register(messaging.AddrOffscreen, doc.listener)
	r.cfg.Logger.Debug().Dur("warmup", r.cfg.Warmup).Msg("offscreen document created")

	if r.cfg.Warmup <= 0 {
		doc.attach()
		return nil
	}
	go func() {
		t := time.NewTimer(r.cfg.Warmup)
		defer t.Stop()
		select {
		case <-t.C:
			doc.attach()
		case <-doc.closed:
		}
	}()
	return nil
}

// Close destroys the document, if any.
func (r *Runtime) Close() {
	r.mu.Lock()
	doc := r.doc
	r.doc = nil
	r.mu.Unlock()

	if doc != nil {
		r.bus.Unregister(messaging.AddrOffscreen)
		doc.close()
	}
}
