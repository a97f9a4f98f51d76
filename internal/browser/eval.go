package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/dataurl"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// call evaluates fn(args) inside tab id and stores the resolved value in res.
func (b *Browser) call(ctx context.Context, id conversion.TabID, fn string, args any, res any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("browser: encoding script arguments: %w", err)
	}
	expr := fmt.Sprintf("(%s)(%s)", fn, raw)
	return b.run(ctx, id, chromedp.Evaluate(expr, res, awaitPromise))
}

type convertArgs struct {
	DataURL      string  `json:"dataUrl"`
	Format       string  `json:"format"`
	Quality      float64 `json:"quality"`
	MaxDimension int     `json:"maxDimension"`
}

// ConvertInTab decodes dataURI inside tab id, resizes it per req and
// re-encodes it. It returns the encoded bytes and their media type.
func (b *Browser) ConvertInTab(ctx context.Context, id conversion.TabID, dataURI string, req conversion.Request) ([]byte, string, error) {
	req = req.Normalized()
	var out string
	err := b.call(ctx, id, convertJS, convertArgs{
		DataURL:      dataURI,
		Format:       string(req.Format),
		Quality:      req.Quality,
		MaxDimension: req.MaxDimension,
	}, &out)
	if err != nil {
		return nil, "", fmt.Errorf("in-page conversion: %w", err)
	}
	mt, data, err := dataurl.Decode(out)
	if err != nil {
		return nil, "", fmt.Errorf("in-page conversion: %w", err)
	}
	return data, mt, nil
}

type clipboardArgs struct {
	DataURL     string `json:"dataUrl"`
	Format      string `json:"format"`
	FocusWaitMs int    `json:"focusWaitMs"`
}

// WriteClipboard writes the image in dataURI to the clipboard of tab id.
func (b *Browser) WriteClipboard(ctx context.Context, id conversion.TabID, dataURI string, format conversion.Format, focusWait time.Duration) error {
	grant := chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		return cdpbrowser.GrantPermissions([]cdpbrowser.PermissionType{
			cdpbrowser.PermissionTypeClipboardReadWrite,
			cdpbrowser.PermissionTypeClipboardSanitizedWrite,
		}).Do(cdp.WithExecutor(ctx, c.Browser))
	})
	if err := b.run(ctx, id, grant); err != nil {
		return fmt.Errorf("granting clipboard permission: %w", err)
	}

	var ok bool
	return b.call(ctx, id, clipboardJS, clipboardArgs{
		DataURL:     dataURI,
		Format:      string(format),
		FocusWaitMs: int(focusWait / time.Millisecond),
	}, &ok)
}

type toastArgs struct {
	Text       string `json:"text"`
	IsError    bool   `json:"isError"`
	DurationMs int    `json:"durationMs"`
}

// ShowToast renders a transient notification inside tab id.
func (b *Browser) ShowToast(ctx context.Context, id conversion.TabID, text string, isError bool, d time.Duration) error {
	var ok bool
	return b.call(ctx, id, toastJS, toastArgs{Text: text, IsError: isError, DurationMs: int(d / time.Millisecond)}, &ok)
}
