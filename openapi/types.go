package openapi

import "fmt"

// ToolDefinition is the host-facing contract for one operation: a name the
// agent can call, a natural-language description, and the input shape.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON-Schema-shaped input contract for a tool. It covers
// path and query parameters plus the request body's top-level fields.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Content is one block of a tool call result.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// TextContent creates a text content block.
func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// ToolCallResult is the uniform envelope returned for every tool invocation,
// success or failure. Metadata carries diagnostics (status code, URL, method)
// on success only.
type ToolCallResult struct {
	Content  []Content      `json:"content"`
	IsError  bool           `json:"isError,omitempty"`
	Metadata map[string]any `json:"_metadata,omitempty"`
}

func errorResult(format string, args ...any) ToolCallResult {
	return ToolCallResult{
		Content: []Content{TextContent(fmt.Sprintf(format, args...))},
		IsError: true,
	}
}
