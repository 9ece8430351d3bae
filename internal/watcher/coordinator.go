package watcher

import (
	"context"
	"errors"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/parsers"
)

// WatchCoordinator routes debounced file changes to a Converter.
type WatchCoordinator struct {
	files     FileWatcher
	converter Converter
	logger    *zap.Logger
	onBatch   func(ConvertStats)
	ctx       context.Context
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, converter Converter, logger *zap.Logger) *WatchCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchCoordinator{
		files:     files,
		converter: converter,
		logger:    logger,
	}
}

// OnBatch registers fn to receive the stats of every processed batch.
func (c *WatchCoordinator) OnBatch(fn func(ConvertStats)) {
	c.onBatch = fn
}

// Start begins routing file changes to the converter.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", zap.Error(err))
	}
}

// handleFileChange converts each changed file. Events arriving during the
// batch are held until it finishes.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	c.logger.Info("processing file changes", zap.Int("files", len(sorted)))

	var stats ConvertStats
	for _, path := range sorted {
		if ctx.Err() != nil {
			break
		}

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			stats.Removed++
			c.logger.Debug("skipping removed file", zap.String("path", path))
			continue
		}

		if err := c.converter.Convert(ctx, path); err != nil {
			stats.Failed++
			var perr *parsers.ParseError
			if errors.As(err, &perr) {
				c.logger.Warn("skipping malformed source", zap.String("path", path), zap.Int("line", perr.Line), zap.String("reason", perr.Reason))
			} else {
				c.logger.Error("conversion failed", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		stats.Converted++
	}

	c.logger.Info("converted changed files",
		zap.Int("converted", stats.Converted),
		zap.Int("failed", stats.Failed),
		zap.Int("removed", stats.Removed))

	if c.onBatch != nil {
		c.onBatch(stats)
	}
}
