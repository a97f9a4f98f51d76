package conversion

import "fmt"

// ErrorKind classifies a conversion failure.
type ErrorKind string

const (
	FetchError         ErrorKind = "FetchError"
	DecodeError        ErrorKind = "DecodeError"
	EncodeError        ErrorKind = "EncodeError"
	NoTarget           ErrorKind = "NoTarget"
	Timeout            ErrorKind = "Timeout"
	ContextUnavailable ErrorKind = "ContextUnavailable"
)

// Failure is the failed variant of a Result. It satisfies error so it can
// travel through code that wraps errors.
type Failure struct {
	Kind   ErrorKind `json:"reason"`
	Detail string    `json:"error"`
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Result is either a success carrying the encoded image or a Failure.
// Build it with Succeeded or Failed; exactly one variant is populated.
type Result struct {
	Encoded  []byte
	MIMEType string
	Failure  *Failure
}

// Succeeded returns a successful Result. Empty data cannot form a success
// and yields an EncodeError failure instead.
func Succeeded(data []byte, mimeType string) Result {
	if len(data) == 0 {
		return Failed(EncodeError, "empty image data")
	}
	return Result{Encoded: data, MIMEType: mimeType}
}

// Failed returns a failed Result.
func Failed(kind ErrorKind, detail string) Result {
	return Result{Failure: &Failure{Kind: kind, Detail: detail}}
}

// OK reports whether r is the success variant.
func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}
