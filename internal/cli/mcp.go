package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/flowmark/internal/mcp"
	"github.com/mvp-joe/flowmark/internal/pipeline"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for Python flow-chart conversion",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
annotate Python source and produce VFC transcripts without touching disk.

The MCP server provides:
- flowmark_annotate: marker-annotated source
- flowmark_transcript: VFC transcript with footer
- flowmark_outline: block tree with line ranges

Annotation defaults come from .flowmark/config.yml and can be overridden
per request. Communicates via stdio (standard MCP transport).

Example:
  flowmark mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Fprintf(os.Stderr, "Flowmark MCP Server %s\n\n", Version)

	results, err := newResultCache(appConfig)
	if err != nil {
		return err
	}
	var opts []pipeline.Option
	if results != nil {
		defer results.Close()
		opts = append(opts, pipeline.WithCache(results))
	}

	converter := mcp.NewConverter(pipelineConfig(appConfig), logger, opts...)
	server := mcp.NewMCPServer(converter, Version, logger)

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
