package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/messaging"
	"github.com/rs/zerolog"
)

// Outcome is how a save ended.
type Outcome struct {
	State   State
	Path    string
	Message string
}

// Saved reports whether the file was written.
func (o Outcome) Saved() bool { return o.State == StateComplete }

// SaveOptions carries the user preferences that affect a save.
type SaveOptions struct {
	SaveAs bool
	Toast  messaging.ToastOptions
}

// Saver hands converted images to the download manager and reports how
// the download ended.
type Saver struct {
	downloads *Downloads
	notifier  Notifier
	log       zerolog.Logger
}

// NewSaver returns a saver. notifier may be nil.
func NewSaver(downloads *Downloads, notifier Notifier, log zerolog.Logger) *Saver {
	return &Saver{downloads: downloads, notifier: notifier, log: log}
}

// Save writes res under filename and waits for the download to complete
// or be interrupted. The outcome is also sent to the notifier.
func (s *Saver) Save(ctx context.Context, res conversion.Result, filename string, opts SaveOptions) (Outcome, error) {
	if !res.OK() {
		out := Outcome{State: StateInterrupted, Message: FailureMessage(MsgSaveFailed, res.Failure.Detail)}
		s.notify(ctx, false, out.Message, opts.Toast)
		return out, res.Err()
	}

	var (
		mu     sync.Mutex
		target int
		early  []Delta
	)
	final := make(chan Delta, 1)
	deliver := func(d Delta) {
		if d.ID != target || d.State == StateInProgress {
			return
		}
		select {
		case final <- d:
		default:
		}
	}
	remove := s.downloads.OnChanged(func(d Delta) {
		mu.Lock()
		defer mu.Unlock()
		if target == 0 {
			early = append(early, d)
			return
		}
		deliver(d)
	})
	defer remove()

	id, err := s.downloads.Download(ctx, DownloadOptions{Data: res.Encoded, Filename: filename, SaveAs: opts.SaveAs})
	if err != nil {
		out := Outcome{State: StateInterrupted, Message: FailureMessage(MsgSaveFailed, err.Error())}
		s.notify(ctx, false, out.Message, opts.Toast)
		return out, err
	}
	mu.Lock()
	target = id
	for _, d := range early {
		deliver(d)
	}
	early = nil
	mu.Unlock()

	d := <-final
	out := Outcome{State: d.State, Path: d.Path}
	switch {
	case d.State == StateComplete:
		out.Message = MsgSaved
		s.notify(ctx, true, out.Message, opts.Toast)
		return out, nil
	case d.Error == ReasonUserCanceled:
		out.Message = MsgSaveCancelled
		s.notify(context.WithoutCancel(ctx), false, out.Message, opts.Toast)
		return out, nil
	default:
		out.Message = FailureMessage(MsgSaveFailed, d.Error)
		s.notify(ctx, false, out.Message, opts.Toast)
		return out, fmt.Errorf("download %d interrupted: %s", id, d.Error)
	}
}

func (s *Saver) notify(ctx context.Context, success bool, msg string, opts messaging.ToastOptions) {
	if s.notifier == nil || !opts.Enabled {
		return
	}
	if err := s.notifier.Notify(ctx, success, msg, opts); err != nil {
		s.log.Debug().Err(err).Msg("notification not delivered")
	}
}
