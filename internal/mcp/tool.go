package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	mcputils "github.com/mvp-joe/flowmark/internal/mcp-utils"
	"github.com/mvp-joe/flowmark/internal/outline"
	"github.com/mvp-joe/flowmark/internal/parsers"
	"github.com/mvp-joe/flowmark/internal/pipeline"
)

// Tool names.
const (
	AnnotateToolName   = "flowmark_annotate"
	TranscriptToolName = "flowmark_transcript"
	OutlineToolName    = "flowmark_outline"
)

// Converter runs the conversion pipeline for one request. It lets requests
// override the server's default annotation settings.
type Converter struct {
	base    pipeline.Config
	options []pipeline.Option
	logger  *zap.Logger
}

// NewConverter creates a request converter with the given defaults.
func NewConverter(base pipeline.Config, logger *zap.Logger, opts ...pipeline.Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{base: base, options: opts, logger: logger}
}

func (c *Converter) run(ctx context.Context, req ConvertRequest) (*pipeline.Result, error) {
	if req.Source == "" {
		return nil, pipeline.ErrEmptyInput
	}

	cfg := c.base
	if req.SkipExisting != nil {
		cfg.SkipExisting = *req.SkipExisting
	}
	if req.NormalizeEmphasis != nil {
		cfg.NormalizeEmphasis = *req.NormalizeEmphasis
	}

	return pipeline.New(cfg, c.logger, c.options...).Run(ctx, req.Name, []byte(req.Source))
}

// AddAnnotateTool registers flowmark_annotate with an MCP server.
func AddAnnotateTool(s *server.MCPServer, c *Converter) {
	tool := mcp.NewTool(
		AnnotateToolName,
		mcp.WithDescription("Insert structure markers (#beginX / #endX comment pairs) around every function, method, class, if/elif, for, while, with and try block of a Python document. Returns the annotated source."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Python source text to annotate")),
		mcp.WithString("name",
			mcp.Description("Document name used in error messages (e.g., 'app/main.py')")),
		mcp.WithBoolean("skip_existing",
			mcp.Description("Do not insert tags an earlier pass already wrote (default: server setting)")),
		mcp.WithBoolean("normalize_emphasis",
			mcp.Description("Retry a failed parse with *name* emphasis removed (default: server setting)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createAnnotateHandler(c))
}

// AddTranscriptTool registers flowmark_transcript with an MCP server.
func AddTranscriptTool(s *server.MCPServer, c *Converter) {
	tool := mcp.NewTool(
		TranscriptToolName,
		mcp.WithDescription("Convert a Python document into a Visustin flow-chart (VFC) transcript: one 'type(code);// comment' record per statement followed by the session footer."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Python source text to convert")),
		mcp.WithString("name",
			mcp.Description("Document name; its base name is written into the transcript footer (default: 'stdin')")),
		mcp.WithBoolean("skip_existing",
			mcp.Description("Do not insert tags an earlier pass already wrote (default: server setting)")),
		mcp.WithBoolean("normalize_emphasis",
			mcp.Description("Retry a failed parse with *name* emphasis removed (default: server setting)")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createTranscriptHandler(c))
}

// AddOutlineTool registers flowmark_outline with an MCP server.
func AddOutlineTool(s *server.MCPServer, c *Converter) {
	tool := mcp.NewTool(
		OutlineToolName,
		mcp.WithDescription("List the structural blocks of a Python document with their 1-based line ranges and nesting depth."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Python source text to outline")),
		mcp.WithString("name",
			mcp.Description("Document name used in error messages")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createOutlineHandler(c))
}

func createAnnotateHandler(c *Converter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req ConvertRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		requestID := uuid.NewString()
		result, err := c.run(ctx, req)
		if err != nil {
			return c.failure(requestID, AnnotateToolName, err)
		}

		return jsonResult(&AnnotateResponse{
			RequestID: requestID,
			Name:      req.Name,
			Annotated: result.AnnotatedText(),
			Blocks:    result.Table.Len(),
		})
	}
}

func createTranscriptHandler(c *Converter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req ConvertRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		requestID := uuid.NewString()
		result, err := c.run(ctx, req)
		if err != nil {
			return c.failure(requestID, TranscriptToolName, err)
		}

		return jsonResult(&TranscriptResponse{
			RequestID:  requestID,
			Name:       req.Name,
			Transcript: result.TranscriptText(),
			Records:    len(result.Transcript.Records),
		})
	}
}

func createOutlineHandler(c *Converter) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req OutlineRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		requestID := uuid.NewString()
		result, err := c.run(ctx, ConvertRequest{Source: req.Source, Name: req.Name})
		if err != nil {
			return c.failure(requestID, OutlineToolName, err)
		}

		o, err := outline.Build(result.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to build outline: %w", err)
		}
		entries, err := o.Entries()
		if err != nil {
			return nil, fmt.Errorf("failed to walk outline: %w", err)
		}

		return jsonResult(&OutlineResponse{
			RequestID: requestID,
			Entries:   entries,
		})
	}
}

// failure turns expected conversion errors into tool errors the client can
// show; anything else is a protocol-level failure.
func (c *Converter) failure(requestID, tool string, err error) (*mcp.CallToolResult, error) {
	var perr *parsers.ParseError
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		return mcp.NewToolResultError("source parameter is required"), nil
	case errors.As(err, &perr):
		c.logger.Debug("tool rejected malformed source",
			zap.String("tool", tool),
			zap.String("request_id", requestID),
			zap.Int("line", perr.Line))
		return mcp.NewToolResultError(perr.Error()), nil
	default:
		c.logger.Error("tool failed",
			zap.String("tool", tool),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("%s failed: %w", tool, err)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
