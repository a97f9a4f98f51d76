// Package delivery hands converted images to their final consumers: the
// download manager for saves, a tab's clipboard writer for copies, and
// notifiers that report the outcome.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a download.
type State string

const (
	StateInProgress  State = "in_progress"
	StateComplete    State = "complete"
	StateInterrupted State = "interrupted"
)

// Interrupt reasons reported in Delta.Error.
const (
	ReasonUserCanceled = "USER_CANCELED"
	ReasonFileFailed   = "FILE_FAILED"
)

var (
	// ErrInvalidFilename is returned for names that escape the download
	// directory or are empty.
	ErrInvalidFilename = errors.New("delivery: invalid filename")

	// ErrPromptCanceled is returned by a Prompter when the user dismisses
	// the save dialog.
	ErrPromptCanceled = errors.New("delivery: save prompt canceled")
)

// Delta reports a state change of download ID.
type Delta struct {
	ID    int
	State State
	// Error is the interrupt reason when State is StateInterrupted.
	Error string
	// Path is the final location once State is StateComplete.
	Path string
}

// Prompter asks the user where to save a file.
type Prompter interface {
	Prompt(ctx context.Context, suggested string) (string, error)
}

// DownloadOptions describes one download.
type DownloadOptions struct {
	Data     []byte
	Filename string
	SaveAs   bool
}

// Downloads writes files into a directory in the background and reports
// their progress to listeners. It is safe for concurrent use.
type Downloads struct {
	dir    string
	prompt Prompter
	log    zerolog.Logger

	mu        sync.Mutex
	nextID    int
	nextLis   int
	listeners map[int]func(Delta)
	reserved  map[string]bool
	wg        sync.WaitGroup
}

// NewDownloads returns a manager writing into dir. prompt may be nil, in
// which case SaveAs is ignored.
func NewDownloads(dir string, prompt Prompter, log zerolog.Logger) *Downloads {
	return &Downloads{
		dir:       dir,
		prompt:    prompt,
		log:       log,
		listeners: make(map[int]func(Delta)),
		reserved:  make(map[string]bool),
	}
}

// Dir returns the download directory.
func (d *Downloads) Dir() string { return d.dir }

// OnChanged registers fn for every delta of every download. The returned
// function removes it. fn runs on the writer goroutine and must not block.
func (d *Downloads) OnChanged(fn func(Delta)) (remove func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextLis++
	key := d.nextLis
	d.listeners[key] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, key)
	}
}

// Download validates opts and starts writing in the background. Progress
// is reported through OnChanged. Cancelling ctx before the file is in
// place interrupts the download with ReasonUserCanceled.
func (d *Downloads) Download(ctx context.Context, opts DownloadOptions) (int, error) {
	name, err := cleanName(opts.Filename)
	if err != nil {
		return 0, err
	}
	if len(opts.Data) == 0 {
		return 0, fmt.Errorf("delivery: empty download")
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.emit(Delta{ID: id, State: StateInProgress})
		path, err := d.write(ctx, name, opts)
		switch {
		case err == nil:
			d.log.Debug().Int("download", id).Str("path", path).Msg("download complete")
			d.emit(Delta{ID: id, State: StateComplete, Path: path})
		case errors.Is(err, ErrPromptCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			d.emit(Delta{ID: id, State: StateInterrupted, Error: ReasonUserCanceled})
		default:
			d.log.Warn().Err(err).Int("download", id).Msg("download failed")
			d.emit(Delta{ID: id, State: StateInterrupted, Error: ReasonFileFailed})
		}
	}()
	return id, nil
}

// Wait blocks until every started download has finished.
func (d *Downloads) Wait() { d.wg.Wait() }

func (d *Downloads) emit(delta Delta) {
	d.mu.Lock()
	fns := make([]func(Delta), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(delta)
	}
}

func (d *Downloads) write(ctx context.Context, name string, opts DownloadOptions) (string, error) {
	target := filepath.Join(d.dir, name)
	if opts.SaveAs && d.prompt != nil {
		chosen, err := d.prompt.Prompt(ctx, target)
		if err != nil {
			return "", err
		}
		if chosen != "" {
			target = chosen
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".saveimg-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(opts.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	final := d.reserve(target)
	defer d.release(final)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return final, nil
}

// reserve picks a name that neither exists on disk nor is being written
// by another download: "a.png", "a (1).png", "a (2).png", ...
func (d *Downloads) reserve(target string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	candidate := target
	for i := 1; ; i++ {
		if !d.reserved[candidate] {
			if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
				d.reserved[candidate] = true
				return candidate
			}
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
}

func (d *Downloads) release(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.reserved, name)
}

func cleanName(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" || filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return name, nil
}
