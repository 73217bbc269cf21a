package cvar

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before an
// archive is reloaded.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads an archive file into a registry whenever it changes.
type Watcher struct {
	reg      *Registry
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	// reloaded, if set, is called after every reload attempt.
	reloaded func(error)
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnReload registers a callback run after every reload attempt with its
// result.
func OnReload(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.reloaded = fn
	}
}

// NewWatcher watches path for changes. The containing directory is watched
// so that editors that replace the file by rename are handled.
func NewWatcher(reg *Registry, path string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cvar: create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("cvar: watch %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("cvar: watch %s: %w", path, err)
	}
	w := &Watcher{
		reg:      reg,
		path:     abs,
		debounce: DefaultDebounce,
		watcher:  fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	slogger().Info("cvar: watching archive", "path", w.path)

	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				slogger().Debug("cvar: archive changed", "op", event.Op.String())
				debounce.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slogger().Warn("cvar: watcher error", "err", err)

		case <-debounce.C:
			err := w.reg.LoadFile(w.path)
			if err != nil {
				slogger().Warn("cvar: archive reload failed", "path", w.path, "err", err)
			}
			if w.reloaded != nil {
				w.reloaded(err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Watch reloads path into r on every change until ctx is done.
func (r *Registry) Watch(ctx context.Context, path string, opts ...WatchOption) error {
	w, err := NewWatcher(r, path, opts...)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx)
}
