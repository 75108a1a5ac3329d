package live

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"arbor-cli/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounce     = 150 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
)

var ErrWatcherStarted = errors.New("file watcher already started")

// FileWatcher turns writes to the SQLite file (and its WAL companion) made by other
// processes, such as the sync agent, into Hub notifications. It uses fsnotify and
// falls back to stat polling when fsnotify is unavailable.
type FileWatcher struct {
	path         string
	hub          *Hub
	tables       []string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	log          logrus.FieldLogger

	mu      sync.Mutex
	started bool
	polling bool
	timer   *time.Timer
}

type FileWatcherOption func(*FileWatcher)

func WithDebounce(d time.Duration) FileWatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithPollInterval(d time.Duration) FileWatcherOption {
	return func(w *FileWatcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

func WithForcePoll(force bool) FileWatcherOption {
	return func(w *FileWatcher) { w.forcePoll = force }
}

func WithWatcherLogger(l logrus.FieldLogger) FileWatcherOption {
	return func(w *FileWatcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewFileWatcher watches dbPath; on change it notifies hub for tables.
func NewFileWatcher(dbPath string, hub *Hub, tables []string, opts ...FileWatcherOption) (*FileWatcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, err
	}
	w := &FileWatcher{
		path:         abs,
		hub:          hub,
		tables:       append([]string{}, tables...),
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
		log:          logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done.
func (w *FileWatcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrWatcherStarted
	}
	w.started = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.started = false
		w.mu.Unlock()
	}()

	if !w.forcePoll {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory: SQLite creates and truncates the -wal/-shm files.
			if err = fsw.Add(filepath.Dir(w.path)); err == nil {
				defer fsw.Close()
				return w.watchFsnotify(ctx, fsw)
			}
			_ = fsw.Close()
		}
		w.log.WithError(err).Warn("fsnotify unavailable; polling database file")
	}
	return w.watchPolling(ctx)
}

// IsPolling reports whether the watcher fell back to polling.
func (w *FileWatcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

func (w *FileWatcher) relevant(name string) bool {
	base := filepath.Base(w.path)
	switch filepath.Base(name) {
	case base, base + "-wal", base + "-journal":
		return true
	}
	return false
}

func (w *FileWatcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")
		}
	}
}

func (w *FileWatcher) watchPolling(ctx context.Context) error {
	w.mu.Lock()
	w.polling = true
	w.mu.Unlock()

	last := w.fingerprint()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := w.fingerprint()
			if cur != last {
				last = cur
				w.trigger()
			}
		}
	}
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

func (w *FileWatcher) fingerprint() [2]fileStamp {
	var out [2]fileStamp
	for i, p := range []string{w.path, w.path + "-wal"} {
		if st, err := os.Stat(p); err == nil {
			out[i] = fileStamp{mtime: st.ModTime(), size: st.Size()}
		}
	}
	return out
}

// trigger debounces bursts of file events into a single notification.
func (w *FileWatcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.hub.Notify(w.tables...)
	})
}
