package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrEmptyInput indicates a request carried no source text at all.
var ErrEmptyInput = errors.New("empty input")

// IOError wraps a failure to read the input or write an artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Outputs names the artifact files of one conversion. An empty path skips
// that artifact.
type Outputs struct {
	AnnotatedPath  string
	TranscriptPath string
}

// TranscriptPathFor returns the default transcript location for input.
func TranscriptPathFor(input, suffix string) string {
	return input + suffix
}

// ConvertFile reads inputPath, runs the pipeline and writes the requested
// artifacts. Nothing is written unless the whole conversion succeeds.
func (p *Pipeline) ConvertFile(ctx context.Context, inputPath string, out Outputs) (*Result, error) {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, &IOError{Op: "read", Path: inputPath, Err: err}
	}

	result, err := p.Run(ctx, inputPath, source)
	if err != nil {
		return nil, err
	}

	if err := WriteArtifacts(result, out); err != nil {
		return nil, err
	}

	p.logger.Debug("wrote artifacts",
		zap.String("path", inputPath),
		zap.String("annotated", out.AnnotatedPath),
		zap.String("transcript", out.TranscriptPath))
	return result, nil
}

// errIsDirectory rejects an artifact path naming an existing directory.
var errIsDirectory = errors.New("is a directory")

// WriteArtifacts stages every requested artifact in a temp file beside its
// target and only then moves them into place. Either every artifact is
// written or the destinations are left as they were.
func WriteArtifacts(result *Result, out Outputs) error {
	writes := []struct {
		path string
		data string
	}{
		{out.AnnotatedPath, result.AnnotatedText()},
		{out.TranscriptPath, result.TranscriptText()},
	}

	var staged []*pendingWrite
	discard := func() {
		for _, w := range staged {
			os.Remove(w.tmp)
		}
	}

	for _, w := range writes {
		if w.path == "" {
			continue
		}
		if info, err := os.Stat(w.path); err == nil && info.IsDir() {
			discard()
			return &IOError{Op: "write", Path: w.path, Err: errIsDirectory}
		}
		tmp, err := stage(w.path, []byte(w.data))
		if err != nil {
			discard()
			return err
		}
		staged = append(staged, &pendingWrite{tmp: tmp, dst: w.path})
	}

	for i, w := range staged {
		if err := w.commit(); err != nil {
			for j := i - 1; j >= 0; j-- {
				staged[j].rollback()
			}
			for _, rest := range staged[i:] {
				os.Remove(rest.tmp)
			}
			return &IOError{Op: "write", Path: w.dst, Err: err}
		}
	}

	for _, w := range staged {
		w.finish()
	}
	return nil
}

// pendingWrite moves one staged temp file over its destination. An
// existing destination is kept as a backup until every write succeeded.
type pendingWrite struct {
	tmp    string
	dst    string
	backup string
}

func (w *pendingWrite) commit() error {
	if _, err := os.Lstat(w.dst); err == nil {
		backup := w.tmp + ".bak"
		if err := os.Rename(w.dst, backup); err != nil {
			return err
		}
		w.backup = backup
	}

	if err := os.Rename(w.tmp, w.dst); err != nil {
		if w.backup != "" {
			os.Rename(w.backup, w.dst)
			w.backup = ""
		}
		return err
	}
	return nil
}

// rollback puts the destination back the way it was before commit.
func (w *pendingWrite) rollback() {
	if w.backup != "" {
		os.Rename(w.backup, w.dst)
		return
	}
	os.Remove(w.dst)
}

func (w *pendingWrite) finish() {
	if w.backup != "" {
		os.Remove(w.backup)
	}
}

func stage(dst string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return "", &IOError{Op: "write", Path: dst, Err: err}
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())
		return "", &IOError{Op: "write", Path: dst, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", &IOError{Op: "write", Path: dst, Err: err}
	}
	return f.Name(), nil
}
