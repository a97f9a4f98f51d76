package offscreen

import (
	"context"
	"fmt"
	"sync"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	"github.com/AnyUserName/saveimg/internal/encoder"
	"github.com/AnyUserName/saveimg/internal/fetcher"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
)

// Document is the auxiliary execution context.
type Document struct {
	listener *messaging.Listener
	fetcher  *fetcher.Fetcher
	canvas   *encoder.Canvas
	log      zerolog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newDocument(cfg Config) *Document {
	return &Document{
		listener: messaging.NewListener(),
		fetcher:  cfg.Fetcher,
		canvas:   cfg.Canvas,
		log:      cfg.Logger.With().Str("context", string(conversion.ContextPrimaryAuxiliary)).Logger(),
		closed:   make(chan struct{}),
	}
}

func (d *Document) attach() {
	d.listener.Handle(messaging.TypeConvertImage, d.handleConvert)
}

func (d *Document) close() {
	d.closeOnce.Do(func() {
		d.listener.Remove(messaging.TypeConvertImage)
		close(d.closed)
	})
}

func (d *Document) handleConvert(ctx context.Context, msg messaging.Message) (messaging.Response, error) {
	req := msg.Convert.Request().Normalized()

	data, err := d.convert(ctx, req)
	if err != nil {
		d.log.Debug().Err(err).Str("uri", req.URI).Msg("conversion failed")
		return messaging.Response{}, err
	}
	return messaging.Response{
		Success: true,
		DataURL: dataurl.Encode(req.Format.MIMEType(), data),
	}, nil
}

// convert runs fetch, decode, resize and encode in order.
func (d *Document) convert(ctx context.Context, req conversion.Request) ([]byte, error) {
	bmp, err := d.fetcher.Fetch(ctx, req.URI, req.WithCredentials)
	if err != nil {
		return nil, &conversion.Failure{
			Kind:   fetcher.Kind(err),
			Detail: fmt.Sprintf("Failed to load image from URL: %s: %v", req.URI, err),
		}
	}

	w, h := conversion.TargetSize(bmp.Width, bmp.Height, req.MaxDimension)
	d.log.Debug().
		Int("width", bmp.Width).Int("height", bmp.Height).
		Int("target_width", w).Int("target_height", h).
		Str("format", string(req.Format)).
		Msg("drawing")

	// Encode releases bmp on every path.
	data, err := d.canvas.Encode(bmp, w, h, req.Format, req.Quality)
	if err != nil {
		return nil, &conversion.Failure{
			Kind:   conversion.EncodeError,
			Detail: "Failed to convert image: " + err.Error(),
		}
	}
	return data, nil
}
