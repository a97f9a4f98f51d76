// Package messaging is the request/response contract between the
// coordinator, the auxiliary document and page tabs. Every request that is
// delivered is answered exactly once.
package messaging

import (
	"errors"
	"fmt"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/google/uuid"
)

// Type discriminates a message.
type Type string

const (
	TypeConvertImage  Type = "CONVERT_IMAGE"
	TypeCopyImageData Type = "COPY_IMAGE_DATA"
	TypeShowToast     Type = "SHOW_TOAST"
	TypePing          Type = "PING"
)

// ConvertPayload asks a context to fetch, resize and re-encode an image.
type ConvertPayload struct {
	URI             string            `json:"imageUrl"`
	WithCredentials bool              `json:"fetchWithCredentials"`
	Format          conversion.Format `json:"format"`
	Quality         float64           `json:"jpegQuality"`
	MaxDimension    int               `json:"resizeMax"`
}

// Request converts the payload back to a conversion request.
func (p ConvertPayload) Request() conversion.Request {
	return conversion.Request{
		URI:             p.URI,
		WithCredentials: p.WithCredentials,
		Format:          p.Format,
		Quality:         p.Quality,
		MaxDimension:    p.MaxDimension,
	}
}

// ToastOptions controls how a page renders notifications.
type ToastOptions struct {
	Enabled     bool `json:"toastEnabled"`
	DurationMs  int  `json:"toastDurationMs"`
	FocusWaitMs int  `json:"focusWaitMs"`
}

// Toast option bounds.
const (
	MinToastDuration = 500
	MaxToastDuration = 10000
	MaxFocusWait     = 500
)

// Normalized clamps the durations into their accepted ranges. A zero
// value ToastOptions normalizes to the shortest toast and no focus wait.
func (o ToastOptions) Normalized() ToastOptions {
	o.DurationMs = min(max(o.DurationMs, MinToastDuration), MaxToastDuration)
	o.FocusWaitMs = min(max(o.FocusWaitMs, 0), MaxFocusWait)
	return o
}

// CopyPayload hands an encoded image to a page's clipboard writer.
type CopyPayload struct {
	DataURL string            `json:"dataUrl"`
	Format  conversion.Format `json:"format"`
	Options ToastOptions      `json:"options"`
}

// ToastPayload asks a page to show a notification.
type ToastPayload struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Options *ToastOptions `json:"options,omitempty"`
}

// Message is a request sent to another execution context.
type Message struct {
	ID      string          `json:"id"`
	Type    Type            `json:"type"`
	Convert *ConvertPayload `json:"convert,omitempty"`
	Copy    *CopyPayload    `json:"copy,omitempty"`
	Toast   *ToastPayload   `json:"toast,omitempty"`
}

// Response answers a Message. Success and Error are always meaningful;
// the remaining fields depend on the message type.
type Response struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Reason  conversion.ErrorKind `json:"reason,omitempty"`
	DataURL string               `json:"dataUrl,omitempty"`
	OK      bool                 `json:"ok,omitempty"`
	Pong    bool                 `json:"pong,omitempty"`
}

// Failed builds an unsuccessful response. A *conversion.Failure keeps its
// kind in Reason.
func Failed(err error) Response {
	resp := Response{Success: false, Error: err.Error()}
	var f *conversion.Failure
	if errors.As(err, &f) {
		resp.Reason = f.Kind
		resp.Error = f.Detail
	}
	return resp
}

// NewMessage returns a message of type t with a fresh id.
func NewMessage(t Type) Message {
	return Message{ID: uuid.NewString(), Type: t}
}

// ConvertImage builds a CONVERT_IMAGE message for req.
func ConvertImage(req conversion.Request) Message {
	m := NewMessage(TypeConvertImage)
	m.Convert = &ConvertPayload{
		URI:             req.URI,
		WithCredentials: req.WithCredentials,
		Format:          req.Format,
		Quality:         req.Quality,
		MaxDimension:    req.MaxDimension,
	}
	return m
}

// CopyImageData builds a COPY_IMAGE_DATA message.
func CopyImageData(dataURL string, format conversion.Format, opts ToastOptions) Message {
	m := NewMessage(TypeCopyImageData)
	m.Copy = &CopyPayload{DataURL: dataURL, Format: format, Options: opts}
	return m
}

// ShowToast builds a SHOW_TOAST message.
func ShowToast(success bool, text string, opts *ToastOptions) Message {
	m := NewMessage(TypeShowToast)
	m.Toast = &ToastPayload{Success: success, Message: text, Options: opts}
	return m
}

// Ping builds a PING liveness probe.
func Ping() Message { return NewMessage(TypePing) }

// Validate checks that the payload required by the message type is present.
func (m Message) Validate() error {
	switch m.Type {
	case TypeConvertImage:
		if m.Convert == nil || m.Convert.URI == "" {
			return fmt.Errorf("%s: missing image URL", m.Type)
		}
	case TypeCopyImageData:
		if m.Copy == nil || m.Copy.DataURL == "" {
			return fmt.Errorf("%s: missing data URL", m.Type)
		}
	case TypeShowToast:
		if m.Toast == nil {
			return fmt.Errorf("%s: missing toast payload", m.Type)
		}
	case TypePing:
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}
