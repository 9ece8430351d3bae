package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/discovery"
	"github.com/mvp-joe/flowmark/internal/watcher"
)

var watchQuiet bool

// watchCmd keeps transcripts current while sources change.
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Convert Python files and re-convert them as they change",
	Long: `Run a batch conversion of dir (default: current directory), then watch it
and re-convert files after they have been quiet for watch.debounce_ms.

Files whose content did not change since their last conversion are not
rewritten. Press Ctrl+C to stop.

Example:
  flowmark watch src/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchQuiet, "quiet", "q", false, "suppress progress output of the initial batch")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, err := targetDir(args)
	if err != nil {
		return err
	}

	finder, err := discovery.New(root, appConfig.Paths.Include, appConfig.Paths.Ignore)
	if err != nil {
		return fmt.Errorf("failed to compile path patterns: %w", err)
	}

	conv, err := newFileConverter(appConfig, logger)
	if err != nil {
		return err
	}
	defer conv.Close()

	if _, err := convertAll(ctx, finder, conv, NewCLIProgressReporter(watchQuiet, cmd.ErrOrStderr()), logger); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	files, err := watcher.NewFileWatcher([]string{root}, watcher.Options{
		Extensions: appConfig.SourceExtensions(),
		Debounce:   time.Duration(appConfig.Watch.DebounceMS) * time.Millisecond,
		Filter: func(path string) bool {
			return finder.Matches(path) && !conv.isArtifact(path)
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	coord := watcher.NewWatchCoordinator(files, conv, logger)
	logger.Info("watching for changes", zap.String("root", root))

	if err := coord.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}
