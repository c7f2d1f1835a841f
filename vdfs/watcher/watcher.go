// Package watcher turns file system changes below documentation roots into
// debounced rebuild requests. Mounts are rebuilt wholesale, so the watcher
// only reports which root changed, never what changed inside it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

var ErrClosed = errors.New("watcher is closed")

// Filter decides whether a changed file can affect a mount's index.
// Directory events always pass.
type Filter func(path string) bool

// ExtensionFilter accepts files with one of the given extensions, compared
// case-insensitively, plus any file named in extraNames.
func ExtensionFilter(extensions []string, extraNames ...string) Filter {
	return func(path string) bool {
		base := filepath.Base(path)
		for _, name := range extraNames {
			if name != "" && base == name {
				return true
			}
		}
		ext := filepath.Ext(path)
		for _, want := range extensions {
			if strings.EqualFold(ext, want) {
				return true
			}
		}
		return false
	}
}

type root struct {
	key    string
	path   string
	filter Filter
}

// Config holds configuration for the watcher
type Config struct {
	// DebounceDelay is the quiet period before a rebuild is requested
	DebounceDelay time.Duration
	// MaxDebounceDelay caps how long a busy root can postpone its rebuild
	MaxDebounceDelay time.Duration
	// QueueCapacity is the capacity of the batch channel
	QueueCapacity int
}

// Watcher watches documentation roots with fsnotify.
type Watcher struct {
	fs        *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	logger    zerolog.Logger
	onEvent   func(Event)

	mu     sync.RWMutex
	roots  []root
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Option allows for customization of a Watcher
type Option func(*Watcher)

// WithLogger sets a custom logger
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithEventHook registers fn to observe every accepted event before it is
// debounced.
func WithEventHook(fn func(Event)) Option {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// New creates a watcher. Call Watch for every root, then Start.
func New(cfg Config, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 16
	}
	w := &Watcher{
		fs:        fsw,
		debouncer: NewDebouncer(cfg.DebounceDelay, cfg.MaxDebounceDelay, cfg.QueueCapacity),
		errors:    make(chan error, 10),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds dir and its subdirectories under key. A nil filter accepts
// every file.
func (w *Watcher) Watch(key, dir string, filter Filter) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	dir = filepath.Clean(dir)
	if err := w.addRecursive(dir); err != nil {
		return err
	}
	w.roots = append(w.roots, root{key: key, path: dir, filter: filter})
	w.logger.Debug().Str("key", key).Str("dir", dir).Msg("watching documentation root")
	return nil
}

// Batches returns debounced rebuild requests, one batch per changed root.
func (w *Watcher) Batches() <-chan Batch {
	return w.debouncer.Batches()
}

// Errors returns errors reported by the underlying watcher.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start runs the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx)
}

// Close stops the event loop and closes the batch and error channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	cancel := w.cancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := w.fs.Close()
	w.wg.Wait()
	w.debouncer.Close()
	close(w.errors)
	return err
}

// addRecursive adds dir and every directory below it. Missing roots are
// reported; unreadable subdirectories are skipped.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable directory")
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			w.logger.Warn().Err(err).Str("path", path).Msg("failed to add subdirectory to watcher")
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn().Err(err).Msg("error channel full, dropping error")
			}
		}
	}
}

func (w *Watcher) handle(fsEvent fsnotify.Event) {
	var eventType EventType
	switch {
	case fsEvent.Has(fsnotify.Create):
		eventType = EventCreate
	case fsEvent.Has(fsnotify.Write):
		eventType = EventWrite
	case fsEvent.Has(fsnotify.Remove):
		eventType = EventRemove
	case fsEvent.Has(fsnotify.Rename):
		eventType = EventRename
	default:
		return
	}

	isDir := false
	if eventType == EventCreate {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			isDir = true
			w.mu.Lock()
			if err := w.addRecursive(fsEvent.Name); err != nil {
				w.logger.Warn().Err(err).Str("path", fsEvent.Name).Msg("failed to watch new directory")
			}
			w.mu.Unlock()
		}
	}

	r, ok := w.rootFor(fsEvent.Name)
	if !ok {
		return
	}
	// removed and renamed paths can no longer be inspected, so they always count
	if !isDir && r.filter != nil && eventType != EventRemove && eventType != EventRename && !r.filter(fsEvent.Name) {
		return
	}

	ev := Event{Type: eventType, Path: fsEvent.Name, Timestamp: time.Now()}
	if w.onEvent != nil {
		w.onEvent(ev)
	}
	w.logger.Debug().Str("key", r.key).Str("op", eventType.String()).Str("path", ev.Path).Msg("documentation change")
	w.debouncer.Add(r.key, ev)
}

// rootFor returns the deepest watched root containing path.
func (w *Watcher) rootFor(path string) (root, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var best root
	found := false
	for _, r := range w.roots {
		if path != r.path && !strings.HasPrefix(path, r.path+string(filepath.Separator)) {
			continue
		}
		if !found || len(r.path) > len(best.path) {
			best, found = r, true
		}
	}
	return best, found
}
