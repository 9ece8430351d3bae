package watcher

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// relevantOps are the operations that can change a source's artifacts.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Options tunes a file watcher.
type Options struct {
	// Extensions to monitor (e.g. []string{".py"}).
	Extensions []string
	// Debounce is the quiet period before the callback fires.
	Debounce time.Duration
	// Filter, when set, must also accept a path for its events to count.
	Filter func(path string) bool
	Logger *zap.Logger
}

// pendingSet collects changed paths between flushes.
type pendingSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

func (s *pendingSet) add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paths == nil {
		s.paths = make(map[string]struct{})
	}
	s.paths[path] = struct{}{}
}

// drain returns the collected paths in lexical order and empties the set.
func (s *pendingSet) drain() []string {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// fileWatcher implements FileWatcher on top of fsnotify. The event loop
// goroutine owns the debounce timer.
type fileWatcher struct {
	fsw      *fsnotify.Watcher
	exts     map[string]struct{}
	filter   func(path string) bool
	debounce time.Duration
	logger   *zap.Logger

	callback func(files []string)
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	paused  atomic.Bool
	pending pendingSet
}

// NewFileWatcher watches every directory under dirs, including directories
// created later.
func NewFileWatcher(dirs []string, opts Options) (FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		fsw:      fsw,
		exts:     make(map[string]struct{}, len(opts.Extensions)),
		filter:   opts.Filter,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
	for _, ext := range opts.Extensions {
		fw.exts[ext] = struct{}{}
	}
	if fw.debounce <= 0 {
		fw.debounce = DefaultDebounce
	}
	if fw.logger == nil {
		fw.logger = zap.NewNop()
	}

	for _, dir := range dirs {
		if err := fw.watchTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fw, nil
}

// Start runs the event loop until ctx is done or Stop is called.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return errors.New("file watcher callback is required")
	}

	fw.callback = callback
	loopCtx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel

	go fw.loop(loopCtx)
	return nil
}

// Stop ends the event loop and releases the fsnotify handle. It is safe to
// call more than once.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.done
		} else {
			close(fw.done)
		}
		err = fw.fsw.Close()
	})
	return err
}

// Pause holds callbacks; changes keep accumulating.
func (fw *fileWatcher) Pause() {
	fw.paused.Store(true)
}

// Resume releases callbacks and flushes anything held while paused.
func (fw *fileWatcher) Resume() {
	if fw.paused.Swap(false) {
		fw.flush()
	}
}

func (fw *fileWatcher) loop(ctx context.Context) {
	defer close(fw.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				fw.followNewDir(event.Name)
			}
			if !fw.relevant(event) {
				continue
			}

			fw.pending.add(event.Name)
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if !fw.paused.Load() {
				fw.flush()
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (fw *fileWatcher) flush() {
	files := fw.pending.drain()
	if len(files) == 0 || fw.callback == nil {
		return
	}
	fw.logger.Debug("debounced file changes", zap.Int("files", len(files)))
	fw.callback(files)
}

// relevant reports whether event touches a watched source.
func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	if _, ok := fw.exts[filepath.Ext(event.Name)]; !ok {
		return false
	}
	return fw.filter == nil || fw.filter(event.Name)
}

// followNewDir starts watching path if it is a freshly created directory.
func (fw *fileWatcher) followNewDir(path string) {
	if err := fw.watchTree(path); err != nil && !errors.Is(err, errNotDir) && !errors.Is(err, fs.ErrNotExist) {
		fw.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
	}
}

var errNotDir = errors.New("not a directory")

// watchTree adds root and every directory below it.
func (fw *fileWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fw.logger.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			if path == root {
				return errNotDir
			}
			return nil
		}
		if err := fw.fsw.Add(path); err != nil {
			fw.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}
