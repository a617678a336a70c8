package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileDebounce is the default time waited after a write event before the file is read, so an editor that
// truncates and then writes the buffer is seen once with its final contents.
const FileDebounce = 10 * time.Millisecond

// Change is a configuration reload produced by a Watcher. Err is set when the new contents could not be
// loaded, in which case Config is the zero value and the previous configuration remains in effect.
type Change struct {
	Event  fsnotify.Event
	Config Config
	Err    error
}

// Watcher reloads a configuration file when it changes and sends the result on a channel.
// It watches the file's directory so editors that replace the file by renaming are followed.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	changes  chan<- Change
	last     Config
	log      *slog.Logger
	done     chan struct{}
}

// NewWatcher starts watching the configuration file at path. Changes whose decoded configuration equals
// the last one sent (or initial, for the first change) are dropped. The watcher stops when ctx is done
// or Close is called.
//
// Parameters:
//   - ctx: controls the lifetime of the watch goroutine
//   - path: the configuration file path
//   - initial: the configuration currently in effect
//   - changes: receives reloads; sends give up when ctx is done
//   - debounce: delay before reading a written file; negative selects FileDebounce
//   - log: the logger, or nil to discard
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an error if the watch could not be established
func NewWatcher(ctx context.Context, path string, initial Config, changes chan<- Change, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err = watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce < 0 {
		debounce = FileDebounce
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  watcher,
		changes:  changes,
		last:     initial,
		log:      log.With(slog.String("component", "config_watcher")),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		w.process(ctx)
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
//
// Returns:
//   - error: an error from closing the underlying fsnotify watcher
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

// process filters directory events down to writes and creations of the watched file.
func (w *Watcher) process(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				w.log.LogAttrs(ctx, slog.LevelDebug, "config event", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
				time.Sleep(w.debounce)

				cfg, err := Load(w.path)
				if err != nil {
					w.log.LogAttrs(ctx, slog.LevelError, "reload config", slog.Any("error", err))
					if !w.send(ctx, Change{Event: ev, Err: err}) {
						return
					}
					continue
				}
				if cfg == w.last {
					w.log.LogAttrs(ctx, slog.LevelDebug, "no change", slog.String("name", ev.Name))
					continue
				}
				w.last = cfg
				if !w.send(ctx, Change{Event: ev, Config: cfg}) {
					return
				}

			// A removed or renamed file leaves the current configuration in effect until it reappears.
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				w.log.LogAttrs(ctx, slog.LevelDebug, "config file gone", slog.String("name", ev.Name), slog.String("op", ev.Op.String()))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if !w.send(ctx, Change{Err: err}) {
				return
			}
		}
	}
}

func (w *Watcher) send(ctx context.Context, c Change) bool {
	select {
	case w.changes <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
