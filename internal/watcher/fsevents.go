package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/leechkit/internal/logger"
)

// DefaultDebounce is the quiet period used when New is given zero.
const DefaultDebounce = 2 * time.Second

// ChangeFunc is called after the collection changed.
type ChangeFunc func(ctx context.Context) error

// Watcher watches one collection file.
type Watcher struct {
	dir      string
	names    map[string]bool
	debounce time.Duration
	onChange ChangeFunc
	logger   logger.Logger

	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// New creates a Watcher for the collection at path.
func New(path string, debounce time.Duration, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: change callback cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	base := filepath.Base(abs)
	return &Watcher{
		dir: filepath.Dir(abs),
		names: map[string]bool{
			base:              true,
			base + "-wal":     true,
			base + "-journal": true,
		},
		debounce: debounce,
		onChange: onChange,
		logger:   logger.Named("watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. The callback runs on the watcher goroutine, so
// runs never overlap.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info(ctx, "watching collection", logger.String("dir", w.dir), logger.Duration("debounce", w.debounce))
	return nil
}

// relevant reports whether ev touches the collection.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug(ctx, "collection changed", logger.String("file", ev.Name), logger.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watch error", logger.Error(err))

		case <-fire:
			fire = nil
			if err := w.onChange(ctx); err != nil {
				w.logger.Error(ctx, "change handler failed", logger.Error(err))
			}
			// Changes made by the handler itself must not trigger it again.
			w.drain()

		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain discards the events already queued.
func (w *Watcher) drain() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Stop halts the watcher and waits for a running callback to return.
// It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopped.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}

// Run starts the watcher and blocks until SIGINT or SIGTERM is received or
// ctx is done, then stops it.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	w.logger.Info(context.Background(), "shutting down watcher")
	return w.Stop()
}
