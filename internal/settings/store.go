package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// reloadDelay coalesces bursts of file events into one reload.
const reloadDelay = 200 * time.Millisecond

// Load reads settings from a YAML file on top of base. Keys missing from
// the file keep base's values. A missing file yields base.
func Load(path string, base Settings) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base.Normalize(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data, base)
}

// Parse decodes YAML settings on top of base.
func Parse(data []byte, base Settings) (Settings, error) {
	s := base
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s.Normalize(), nil
}

// Store serves the current settings and reloads them when their file
// changes. It is safe for concurrent use.
type Store struct {
	path string
	base Settings
	log  zerolog.Logger

	mu        sync.RWMutex
	cur       Settings
	listeners []func(old, updated Settings)
}

// NewStore loads path on top of base. An empty path keeps base in memory.
func NewStore(path string, base Settings, log zerolog.Logger) (*Store, error) {
	s := &Store{path: path, base: base, log: log, cur: base.Normalize()}
	if path == "" {
		return s, nil
	}
	cur, err := Load(path, base)
	if err != nil {
		return nil, err
	}
	s.cur = cur
	return s, nil
}

// Get returns the current normalized settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// OnChange registers fn to run after every change. fn receives the
// previous and the new settings.
func (s *Store) OnChange(fn func(old, updated Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Set replaces the settings, writes them to the store's file if it has
// one and notifies listeners.
func (s *Store) Set(next Settings) error {
	next = next.Normalize()
	if s.path != "" {
		data, err := yaml.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return fmt.Errorf("write settings: %w", err)
		}
	}
	s.replace(next)
	return nil
}

func (s *Store) replace(next Settings) {
	s.mu.Lock()
	old := s.cur
	s.cur = next
	listeners := append([]func(old, updated Settings){}, s.listeners...)
	s.mu.Unlock()

	if old.Equal(next) {
		return
	}
	for _, fn := range listeners {
		fn(old, next)
	}
}

// Reload re-reads the settings file.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	next, err := Load(s.path, s.base)
	if err != nil {
		return err
	}
	s.replace(next)
	return nil
}

// Watch reloads the settings whenever their file is written, created or
// replaced, until ctx ends. The directory is watched so that editors that
// save by rename are noticed.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		name := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDelay, func() {
					if err := s.Reload(); err != nil {
						s.log.Warn().Err(err).Str("path", s.path).Msg("settings reload failed")
						return
					}
					s.log.Debug().Str("path", s.path).Msg("settings reloaded")
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("settings watcher error")
			}
		}
	}()
	return nil
}
