package mcp

import "github.com/mvp-joe/flowmark/internal/outline"

// ConvertRequest is the argument set shared by the annotate and transcript tools.
type ConvertRequest struct {
	Source            string `json:"source"`
	Name              string `json:"name,omitempty"`
	SkipExisting      *bool  `json:"skip_existing,omitempty"`
	NormalizeEmphasis *bool  `json:"normalize_emphasis,omitempty"`
}

// OutlineRequest is the argument set of flowmark_outline.
type OutlineRequest struct {
	Source string `json:"source"`
	Name   string `json:"name,omitempty"`
}

// AnnotateResponse carries the marker-annotated document.
type AnnotateResponse struct {
	RequestID string `json:"request_id"`
	Name      string `json:"name"`
	Annotated string `json:"annotated"`
	Blocks    int    `json:"blocks"`
}

// TranscriptResponse carries the serialized VFC transcript.
type TranscriptResponse struct {
	RequestID  string `json:"request_id"`
	Name       string `json:"name"`
	Transcript string `json:"transcript"`
	Records    int    `json:"records"`
}

// OutlineResponse lists the document's blocks in nesting order.
type OutlineResponse struct {
	RequestID string          `json:"request_id"`
	Entries   []outline.Entry `json:"entries"`
}
