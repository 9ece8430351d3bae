package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for WatchCoordinator:
// - Start blocks until cancellation and stops the file watcher
// - File watcher Start error is propagated
// - File change event converts each existing file in sorted order
// - Removed files are counted and skipped
// - Converter errors are logged and counted, processing continues
// - Watcher is paused during a batch and resumed afterwards
// - Changes arriving during a batch are processed after it
// - Empty change list does nothing

// mockFileWatcher implements FileWatcher for testing.
type mockFileWatcher struct {
	startErr      error
	stopErr       error
	startCallback func(files []string)
	pauseCount    int
	resumeCount   int
	stopCalled    bool
	paused        bool
	pending       [][]string
	mu            sync.Mutex
}

func (m *mockFileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.startCallback = callback
	return nil
}

func (m *mockFileWatcher) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalled = true
	return m.stopErr
}

func (m *mockFileWatcher) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCount++
	m.paused = true
}

func (m *mockFileWatcher) Resume() {
	m.mu.Lock()
	m.resumeCount++
	m.paused = false
	pending := m.pending
	m.pending = nil
	callback := m.startCallback
	m.mu.Unlock()

	for _, files := range pending {
		callback(files)
	}
}

func (m *mockFileWatcher) trigger(files []string) {
	m.mu.Lock()
	if m.paused {
		m.pending = append(m.pending, files)
		m.mu.Unlock()
		return
	}
	callback := m.startCallback
	m.mu.Unlock()

	if callback != nil {
		callback(files)
	}
}

func (m *mockFileWatcher) started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCallback != nil
}

// mockConverter implements Converter for testing.
type mockConverter struct {
	errs   map[string]error
	calls  []string
	during func(path string)
	mu     sync.Mutex
}

func (m *mockConverter) Convert(ctx context.Context, path string) error {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	during := m.during
	err := m.errs[path]
	m.mu.Unlock()

	if during != nil {
		during(path)
	}
	return err
}

func (m *mockConverter) converted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func touch(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.WriteFile(p, []byte("pass\n"), 0644))
		paths = append(paths, p)
	}
	return paths
}

func startCoordinator(t *testing.T, coord *WatchCoordinator, files *mockFileWatcher) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- coord.Start(ctx) }()
	require.Eventually(t, files.started, time.Second, 5*time.Millisecond)
	return cancel, errCh
}

func TestWatchCoordinator_StartAndCancel(t *testing.T) {
	t.Parallel()

	files := &mockFileWatcher{}
	coord := NewWatchCoordinator(files, &mockConverter{}, nil)

	cancel, errCh := startCoordinator(t, coord, files)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}

	files.mu.Lock()
	defer files.mu.Unlock()
	assert.True(t, files.stopCalled)
}

func TestWatchCoordinator_FileWatcherStartError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no inotify")
	files := &mockFileWatcher{startErr: boom}
	coord := NewWatchCoordinator(files, &mockConverter{}, nil)

	err := coord.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, files.stopCalled)
}

func TestWatchCoordinator_ConvertsChangedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := touch(t, dir, "b.py", "a.py")
	failing := paths[0]
	removed := filepath.Join(dir, "gone.py")

	files := &mockFileWatcher{}
	conv := &mockConverter{errs: map[string]error{failing: errors.New("syntax error")}}
	coord := NewWatchCoordinator(files, conv, nil)

	var stats []ConvertStats
	var statsMu sync.Mutex
	coord.OnBatch(func(s ConvertStats) {
		statsMu.Lock()
		stats = append(stats, s)
		statsMu.Unlock()
	})

	cancel, errCh := startCoordinator(t, coord, files)
	defer func() {
		cancel()
		<-errCh
	}()

	files.trigger([]string{failing, removed, paths[1]})

	assert.Equal(t, []string{paths[1], failing}, conv.converted())

	statsMu.Lock()
	defer statsMu.Unlock()
	require.Len(t, stats, 1)
	assert.Equal(t, ConvertStats{Converted: 1, Failed: 1, Removed: 1}, stats[0])

	files.mu.Lock()
	defer files.mu.Unlock()
	assert.Equal(t, 1, files.pauseCount)
	assert.Equal(t, 1, files.resumeCount)
	assert.False(t, files.paused)
}

func TestWatchCoordinator_ChangesDuringBatchAreQueued(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := touch(t, dir, "first.py", "second.py")

	files := &mockFileWatcher{}
	conv := &mockConverter{}
	var once sync.Once
	conv.during = func(string) {
		once.Do(func() { files.trigger([]string{paths[1]}) })
	}
	coord := NewWatchCoordinator(files, conv, nil)

	cancel, errCh := startCoordinator(t, coord, files)
	defer func() {
		cancel()
		<-errCh
	}()

	files.trigger([]string{paths[0]})

	assert.Equal(t, paths, conv.converted())
}

func TestWatchCoordinator_EmptyFileChangeList(t *testing.T) {
	t.Parallel()

	files := &mockFileWatcher{}
	conv := &mockConverter{}
	coord := NewWatchCoordinator(files, conv, nil)

	cancel, errCh := startCoordinator(t, coord, files)
	defer func() {
		cancel()
		<-errCh
	}()

	files.trigger(nil)

	assert.Empty(t, conv.converted())
	files.mu.Lock()
	defer files.mu.Unlock()
	assert.Equal(t, 0, files.pauseCount)
}
