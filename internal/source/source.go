// Package source provides the redirect rules text, either inline from the
// config or from a rules file that may be watched for changes.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

// Rules holds the current rules text. The zero value is an empty source.
type Rules struct {
	text    atomic.Value // string
	file    string
	version atomic.Uint64

	mu        sync.Mutex
	listeners []func(text string)
}

// NewStatic returns a source that always yields text.
func NewStatic(text string) *Rules {
	r := &Rules{}
	r.text.Store(text)
	return r
}

// NewFile returns a source backed by file. A file that cannot be read
// yields empty rules; the error is logged and returned.
func NewFile(file string) (*Rules, error) {
	r := &Rules{file: file}
	err := r.Reload()
	return r, err
}

// Text returns the current rules text.
func (r *Rules) Text() string {
	s, _ := r.text.Load().(string)
	return s
}

// File returns the backing file, empty for a static source.
func (r *Rules) File() string {
	return r.file
}

// Version increments on every successful reload.
func (r *Rules) Version() uint64 {
	return r.version.Load()
}

// OnChange registers fn to run with the new text after each reload.
func (r *Rules) OnChange(fn func(text string)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// Reload re-reads the rules file.
func (r *Rules) Reload() error {
	if r.file == "" {
		return nil
	}
	b, err := os.ReadFile(r.file)
	if err != nil {
		r.text.Store("")
		slog.Error("Read rules file", slog.String("file", r.file), slog.Any("error", err))
		return fmt.Errorf("os.ReadFile: %w", err)
	}
	text := string(b)
	r.text.Store(text)
	r.version.Add(1)
	slog.Info("Rules loaded", slog.String("file", r.file), slog.Int("bytes", len(b)))

	r.mu.Lock()
	listeners := append([]func(string){}, r.listeners...)
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(text)
	}
	return nil
}

// Watch reloads the rules file whenever it changes, until ctx is done. The
// parent directory is watched so editors that replace the file are seen.
func (r *Rules) Watch(ctx context.Context, debounce time.Duration) error {
	if r.file == "" {
		return errors.New("watch: static rules source")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(r.file)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watcher.Add: %w", err)
	}
	slog.Info("Watching rules file", slog.String("file", abs))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			_ = r.Reload()
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				slog.Debug("Rules file changed", slog.String("op", event.Op.String()))
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Rules watcher", slog.Any("error", err))
		}
	}
}
