package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/flowmark/internal/cache"
	"github.com/mvp-joe/flowmark/internal/config"
	"github.com/mvp-joe/flowmark/internal/pipeline"
	"github.com/mvp-joe/flowmark/internal/vfc"
)

// stdinArg selects standard input as the document.
const stdinArg = "-"

// errStdinNeedsVFC is returned when stdin is converted without a transcript path.
var errStdinNeedsVFC = errors.New("reading from stdin requires --vfc")

func runConvert(cmd *cobra.Command, args []string) error {
	return convertDocument(cmd.Context(), convertRequest{
		Input:      args[0],
		Output:     outputPath,
		Transcript: vfcPath,
	}, pipeline.New(pipelineConfig(appConfig), logger), appConfig.Output.VFCSuffix, cmd.InOrStdin(), cmd.OutOrStdout())
}

// convertRequest names the input and artifact paths of a single conversion.
type convertRequest struct {
	Input      string
	Output     string
	Transcript string
}

// convertDocument converts one document. The annotated text goes to stdout
// when no output path is given.
func convertDocument(ctx context.Context, req convertRequest, p *pipeline.Pipeline, vfcSuffix string, stdin io.Reader, stdout io.Writer) error {
	out := pipeline.Outputs{
		AnnotatedPath:  req.Output,
		TranscriptPath: req.Transcript,
	}

	var (
		result *pipeline.Result
		err    error
	)
	if req.Input == stdinArg {
		if out.TranscriptPath == "" {
			return errStdinNeedsVFC
		}
		source, readErr := io.ReadAll(stdin)
		if readErr != nil {
			return &pipeline.IOError{Op: "read", Path: vfc.DefaultDocumentName, Err: readErr}
		}
		result, err = p.Run(ctx, vfc.DefaultDocumentName, source)
		if err != nil {
			return err
		}
		if err := pipeline.WriteArtifacts(result, out); err != nil {
			return err
		}
	} else {
		if out.TranscriptPath == "" {
			out.TranscriptPath = pipeline.TranscriptPathFor(req.Input, vfcSuffix)
		}
		result, err = p.ConvertFile(ctx, req.Input, out)
		if err != nil {
			return err
		}
	}

	if req.Output == "" {
		if _, err := fmt.Fprintln(stdout, result.AnnotatedText()); err != nil {
			return &pipeline.IOError{Op: "write", Path: "stdout", Err: err}
		}
	}
	return nil
}

// newResultCache builds the shared result cache, or nil when disabled.
func newResultCache(cfg *config.Config) (*cache.Results, error) {
	results, err := cache.New(cfg.Cache.MaxEntries)
	if errors.Is(err, cache.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return results, nil
}

// fileConverter writes the artifacts of on-disk sources for batch and watch.
// It implements watcher.Converter.
type fileConverter struct {
	pipeline *pipeline.Pipeline
	results  *cache.Results
	output   config.OutputConfig
	logger   *zap.Logger

	mu      sync.Mutex
	written map[string]*pipeline.Result
}

func newFileConverter(cfg *config.Config, logger *zap.Logger) (*fileConverter, error) {
	results, err := newResultCache(cfg)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if results != nil {
		opts = append(opts, pipeline.WithCache(results))
	}

	return &fileConverter{
		pipeline: pipeline.New(pipelineConfig(cfg), logger, opts...),
		results:  results,
		output:   cfg.Output,
		logger:   logger,
		written:  make(map[string]*pipeline.Result),
	}, nil
}

// Convert reads path and writes its artifacts. A cached result that was
// already written for path is not written again.
func (c *fileConverter) Convert(ctx context.Context, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return &pipeline.IOError{Op: "read", Path: path, Err: err}
	}

	result, err := c.pipeline.Run(ctx, path, source)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.written[path] == result {
		c.logger.Debug("source unchanged, skipping write", zap.String("path", path))
		return nil
	}

	if err := pipeline.WriteArtifacts(result, c.outputsFor(path)); err != nil {
		return err
	}
	c.written[path] = result
	return nil
}

// outputsFor derives the artifact paths of a discovered source.
func (c *fileConverter) outputsFor(path string) pipeline.Outputs {
	out := pipeline.Outputs{
		TranscriptPath: pipeline.TranscriptPathFor(path, c.output.VFCSuffix),
	}
	if c.output.AnnotatedSuffix != "" {
		out.AnnotatedPath = strings.TrimSuffix(path, filepath.Ext(path)) + c.output.AnnotatedSuffix
	}
	return out
}

// isArtifact reports whether path is an annotated document this converter
// writes, so it is never converted again.
func (c *fileConverter) isArtifact(path string) bool {
	return c.output.AnnotatedSuffix != "" && strings.HasSuffix(path, c.output.AnnotatedSuffix)
}

func (c *fileConverter) Close() {
	if c.results == nil {
		return
	}
	hits, misses := c.results.Stats()
	c.logger.Debug("result cache stats",
		zap.Int64("hits", hits),
		zap.Int64("misses", misses),
		zap.Int("entries", c.results.Len()))
	c.results.Close()
}
