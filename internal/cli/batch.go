package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/discovery"
	"github.com/mvp-joe/flowmark/internal/parsers"
	"github.com/mvp-joe/flowmark/internal/watcher"
)

var batchQuiet bool

// batchCmd converts every discovered source under a directory.
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Convert every Python file under a directory",
	Long: `Discover Python files under dir (default: current directory) using the
paths.include and paths.ignore patterns from .flowmark/config.yml, and write
a transcript beside each one. When output.annotated_suffix is set the
annotated document is written too.

A file with a syntax error is reported and skipped; the command exits
non-zero if any file failed.

Example:
  flowmark batch src/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	stats, err := convertAll(ctx, finder, conv, NewCLIProgressReporter(batchQuiet, cmd.ErrOrStderr()), logger)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d files failed to convert", stats.Failed, stats.Failed+stats.Converted)
	}
	return nil
}

// targetDir resolves the optional directory argument to an absolute path.
func targetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return abs, nil
}

// convertAll converts every discovered source one after another.
func convertAll(ctx context.Context, finder *discovery.Finder, conv *fileConverter, reporter *CLIProgressReporter, logger *zap.Logger) (watcher.ConvertStats, error) {
	var stats watcher.ConvertStats
	log := logger.With(zap.String("run_id", uuid.NewString()))

	discovered, err := finder.Discover()
	if err != nil {
		return stats, fmt.Errorf("failed to discover files: %w", err)
	}

	files := discovered[:0]
	for _, path := range discovered {
		if !conv.isArtifact(path) {
			files = append(files, path)
		}
	}

	log.Info("starting batch", zap.String("root", finder.Root()), zap.Int("files", len(files)))
	reporter.OnDiscoveryComplete(len(files))
	reporter.OnFileProcessingStart(len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		err := conv.Convert(ctx, path)
		if err != nil {
			stats.Failed++
			logFailure(log, path, err)
		} else {
			stats.Converted++
		}
		reporter.OnFileProcessed(path, err)
	}

	reporter.OnComplete(stats)
	log.Info("batch complete",
		zap.Int("converted", stats.Converted),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

func logFailure(log *zap.Logger, path string, err error) {
	var perr *parsers.ParseError
	if errors.As(err, &perr) {
		log.Warn("skipping malformed source",
			zap.String("path", path),
			zap.Int("line", perr.Line),
			zap.String("reason", perr.Reason))
		return
	}
	log.Error("conversion failed", zap.String("path", path), zap.Error(err))
}
