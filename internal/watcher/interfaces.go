package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Converter regenerates the artifacts of one source file.
type Converter interface {
	Convert(ctx context.Context, path string) error
}

// ConvertStats summarises one batch of watch-triggered conversions.
type ConvertStats struct {
	Converted int
	Failed    int
	Removed   int
}
