package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/flowmark/internal/outline"
	"github.com/mvp-joe/flowmark/internal/pipeline"
	"github.com/mvp-joe/flowmark/internal/vfc"
)

// outlineCmd prints the block tree of a document.
var outlineCmd = &cobra.Command{
	Use:   "outline <input.py>",
	Short: "Print the structural blocks of a Python file",
	Long: `Print every block flowmark would mark, indented by nesting depth, with its
1-based line range. Use - to read stdin.

Example:
  flowmark outline app.py`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printOutline(cmd.Context(), args[0], pipeline.New(pipelineConfig(appConfig), logger), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(outlineCmd)
}

func printOutline(ctx context.Context, input string, p *pipeline.Pipeline, stdin io.Reader, stdout io.Writer) error {
	name := input
	var (
		source []byte
		err    error
	)
	if input == stdinArg {
		name = vfc.DefaultDocumentName
		source, err = io.ReadAll(stdin)
	} else {
		source, err = os.ReadFile(input)
	}
	if err != nil {
		return &pipeline.IOError{Op: "read", Path: name, Err: err}
	}

	result, err := p.Run(ctx, name, source)
	if err != nil {
		return err
	}

	o, err := outline.Build(result.Table)
	if err != nil {
		return fmt.Errorf("failed to build outline: %w", err)
	}
	return o.Render(stdout)
}
