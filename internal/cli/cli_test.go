package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/flowmark/internal/config"
	"github.com/mvp-joe/flowmark/internal/discovery"
	"github.com/mvp-joe/flowmark/internal/parsers"
	"github.com/mvp-joe/flowmark/internal/pipeline"
)

// Test Plan for CLI commands:
// - Single file: transcript lands at <input>.vfc, annotated text goes to stdout
// - Single file with -o: annotated file written, stdout stays empty
// - Stdin input requires --vfc and names the footer "stdin"
// - Syntax error writes nothing and returns a ParseError
// - Batch converts discovered files, skips ignored dirs and annotated artifacts
// - Batch counts malformed files as failures and keeps going
// - File converter does not rewrite unchanged sources
// - Annotated artifact paths derive from the configured suffix
// - Flag overrides only apply when the flag was set
// - Outline prints the indented block tree
// - Config command emits YAML that decodes back to the same config

const scenarioA = "def f():\n    if x:\n        return 1\n"

const scenarioAAnnotated = "def f(): #beginfunc\n    if x: #beginif\n        return 1\n    #endif\n#endfunc"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newTestPipeline() *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{NormalizeEmphasis: true}, zap.NewNop())
}

func TestConvertDocument_DefaultOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "f.py")
	writeFile(t, input, scenarioA)

	var stdout bytes.Buffer
	err := convertDocument(context.Background(), convertRequest{Input: input}, newTestPipeline(), ".vfc", nil, &stdout)
	require.NoError(t, err)

	assert.Equal(t, scenarioAAnnotated+"\n", stdout.String())

	transcript := readFile(t, input+".vfc")
	assert.True(t, strings.HasPrefix(transcript, "input(def f():);// \nbranch(if x:);// \npath();// \n"))
	assert.Contains(t, transcript, "; f.py      #    '")
}

func TestConvertDocument_ExplicitPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "f.py")
	writeFile(t, input, scenarioA)
	annotated := filepath.Join(dir, "out", "f.marked.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(annotated), 0755))
	transcript := filepath.Join(dir, "flow.vfc")

	var stdout bytes.Buffer
	err := convertDocument(context.Background(), convertRequest{
		Input:      input,
		Output:     annotated,
		Transcript: transcript,
	}, newTestPipeline(), ".vfc", nil, &stdout)
	require.NoError(t, err)

	assert.Empty(t, stdout.String())
	assert.Equal(t, scenarioAAnnotated, readFile(t, annotated))
	assert.FileExists(t, transcript)
	assert.NoFileExists(t, input+".vfc")
}

func TestConvertDocument_Stdin(t *testing.T) {
	t.Parallel()

	t.Run("requires --vfc", func(t *testing.T) {
		var stdout bytes.Buffer
		err := convertDocument(context.Background(), convertRequest{Input: stdinArg}, newTestPipeline(), ".vfc", strings.NewReader(scenarioA), &stdout)
		assert.ErrorIs(t, err, errStdinNeedsVFC)
		assert.Empty(t, stdout.String())
	})

	t.Run("writes transcript", func(t *testing.T) {
		transcript := filepath.Join(t.TempDir(), "stdin.vfc")

		var stdout bytes.Buffer
		err := convertDocument(context.Background(), convertRequest{Input: stdinArg, Transcript: transcript}, newTestPipeline(), ".vfc", strings.NewReader(scenarioA), &stdout)
		require.NoError(t, err)

		assert.Equal(t, scenarioAAnnotated+"\n", stdout.String())
		assert.Contains(t, readFile(t, transcript), "; stdin      #    '")
	})
}

func TestConvertDocument_SyntaxError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "bad.py")
	writeFile(t, input, "x = 1\ndef f():\n")
	annotated := filepath.Join(dir, "bad.marked.py")

	var stdout bytes.Buffer
	err := convertDocument(context.Background(), convertRequest{Input: input, Output: annotated}, newTestPipeline(), ".vfc", nil, &stdout)

	var perr *parsers.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, input, perr.Path)
	assert.Empty(t, stdout.String())
	assert.NoFileExists(t, annotated)
	assert.NoFileExists(t, input+".vfc")
}

func TestConvertAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), scenarioA)
	writeFile(t, filepath.Join(dir, "pkg", "util.py"), "for i in xs:\n    print(i)\n")
	writeFile(t, filepath.Join(dir, "pkg", "broken.py"), "if x:\n")
	writeFile(t, filepath.Join(dir, "venv", "lib.py"), "pass\n")
	writeFile(t, filepath.Join(dir, "old.marked.py"), "pass\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not python\n")

	cfg := config.Default()
	cfg.Output.AnnotatedSuffix = ".marked.py"

	finder, err := discovery.New(dir, cfg.Paths.Include, cfg.Paths.Ignore)
	require.NoError(t, err)
	conv, err := newFileConverter(cfg, zap.NewNop())
	require.NoError(t, err)
	defer conv.Close()

	var progress bytes.Buffer
	reporter := NewCLIProgressReporter(true, &progress)

	stats, err := convertAll(context.Background(), finder, conv, reporter, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Converted)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, progress.String())
	assert.Equal(t, []string{filepath.Join(dir, "pkg", "broken.py")}, reporter.failed)

	assert.FileExists(t, filepath.Join(dir, "app.py.vfc"))
	assert.Equal(t, scenarioAAnnotated, readFile(t, filepath.Join(dir, "app.marked.py")))
	assert.FileExists(t, filepath.Join(dir, "pkg", "util.py.vfc"))
	assert.NoFileExists(t, filepath.Join(dir, "pkg", "broken.py.vfc"))
	assert.NoFileExists(t, filepath.Join(dir, "venv", "lib.py.vfc"))
	assert.NoFileExists(t, filepath.Join(dir, "old.marked.py.vfc"))
}

func TestConvertAll_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), scenarioA)

	cfg := config.Default()
	finder, err := discovery.New(dir, cfg.Paths.Include, cfg.Paths.Ignore)
	require.NoError(t, err)
	conv, err := newFileConverter(cfg, zap.NewNop())
	require.NoError(t, err)
	defer conv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = convertAll(ctx, finder, conv, NewCLIProgressReporter(true, &bytes.Buffer{}), zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "app.py.vfc"))
}

func TestFileConverter_SkipsUnchangedSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "app.py")
	writeFile(t, input, scenarioA)
	transcript := input + ".vfc"

	conv, err := newFileConverter(config.Default(), zap.NewNop())
	require.NoError(t, err)
	defer conv.Close()

	require.NoError(t, conv.Convert(context.Background(), input))
	require.FileExists(t, transcript)

	// Same content hits the cache, so the deleted artifact is not rewritten.
	require.NoError(t, os.Remove(transcript))
	require.NoError(t, conv.Convert(context.Background(), input))
	assert.NoFileExists(t, transcript)

	writeFile(t, input, "while ok:\n    step()\n")
	require.NoError(t, conv.Convert(context.Background(), input))
	assert.True(t, strings.HasPrefix(readFile(t, transcript), "loop(while ok:);// \n"))
}

func TestFileConverter_WithoutCacheAlwaysWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "app.py")
	writeFile(t, input, scenarioA)

	cfg := config.Default()
	cfg.Cache.MaxEntries = 0
	conv, err := newFileConverter(cfg, zap.NewNop())
	require.NoError(t, err)
	defer conv.Close()
	assert.Nil(t, conv.results)

	require.NoError(t, conv.Convert(context.Background(), input))
	require.NoError(t, os.Remove(input+".vfc"))
	require.NoError(t, conv.Convert(context.Background(), input))
	assert.FileExists(t, input+".vfc")
}

func TestFileConverter_Outputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		output     config.OutputConfig
		path       string
		want       pipeline.Outputs
		isArtifact bool
	}{
		{
			name:   "transcript only",
			output: config.OutputConfig{VFCSuffix: ".vfc"},
			path:   "/src/app.py",
			want:   pipeline.Outputs{TranscriptPath: "/src/app.py.vfc"},
		},
		{
			name:   "annotated suffix",
			output: config.OutputConfig{VFCSuffix: ".flow", AnnotatedSuffix: ".marked.py"},
			path:   "/src/app.py",
			want:   pipeline.Outputs{AnnotatedPath: "/src/app.marked.py", TranscriptPath: "/src/app.py.flow"},
		},
		{
			name:       "artifact recognised",
			output:     config.OutputConfig{VFCSuffix: ".vfc", AnnotatedSuffix: ".marked.py"},
			path:       "/src/app.marked.py",
			want:       pipeline.Outputs{AnnotatedPath: "/src/app.marked.marked.py", TranscriptPath: "/src/app.marked.py.vfc"},
			isArtifact: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fileConverter{output: tt.output}
			assert.Equal(t, tt.want, conv.outputsFor(tt.path))
			assert.Equal(t, tt.isArtifact, conv.isArtifact(tt.path))
		})
	}
}

func TestTargetDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "app.py")
	writeFile(t, file, "pass\n")

	got, err := targetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = targetDir([]string{file})
	assert.ErrorContains(t, err, "is not a directory")

	_, err = targetDir([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	t.Parallel()

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().Bool("skip-existing", false, "")
		cmd.Flags().Bool("normalize-emphasis", true, "")
		return cmd
	}

	t.Run("unset flags keep config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Annotate.SkipExisting = true
		require.NoError(t, applyFlagOverrides(newCmd(), cfg))
		assert.True(t, cfg.Annotate.SkipExisting)
		assert.True(t, cfg.Annotate.NormalizeEmphasis)
	})

	t.Run("set flags win", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.ParseFlags([]string{"--skip-existing", "--normalize-emphasis=false"}))

		cfg := config.Default()
		require.NoError(t, applyFlagOverrides(cmd, cfg))
		assert.True(t, cfg.Annotate.SkipExisting)
		assert.False(t, cfg.Annotate.NormalizeEmphasis)
	})
}

func TestPrintOutline(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	err := printOutline(context.Background(), stdinArg, newTestPipeline(), strings.NewReader(scenarioA), &stdout)
	require.NoError(t, err)
	assert.Equal(t, "function L1-L3\n  if L2-L3\n", stdout.String())
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Output.AnnotatedSuffix = ".marked.py"

	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, cfg))

	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, *cfg, decoded)
}
