// Package mcphost exposes a tool catalog through the official MCP Go SDK.
// It is one ToolHost implementation among several; the builtin mcp package
// is the other.
package mcphost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/switchboard-dev/switchboard/openapi"
)

// Host adapts an SDK server to the openapi.ToolHost interface.
type Host struct {
	server *sdk.Server
}

var _ openapi.ToolHost = (*Host)(nil)

// New creates a host reporting the given implementation name and version.
func New(name, version string) *Host {
	return &Host{
		server: sdk.NewServer(&sdk.Implementation{Name: name, Version: version}, nil),
	}
}

// AddTool registers one tool with the SDK server.
func (h *Host) AddTool(definition openapi.ToolDefinition, handler openapi.ToolHandlerFunc) error {
	schema, err := toJSONSchema(definition.InputSchema)
	if err != nil {
		return fmt.Errorf("error converting input schema for %s: %w", definition.Name, err)
	}

	h.server.AddTool(&sdk.Tool{
		Name:        definition.Name,
		Description: definition.Description,
		InputSchema: schema,
	}, func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return &sdk.CallToolResult{
					Content: []sdk.Content{&sdk.TextContent{Text: "Invalid arguments: " + err.Error()}},
					IsError: true,
				}, nil
			}
		}

		result := handler(ctx, args)
		out := &sdk.CallToolResult{IsError: result.IsError}
		for _, block := range result.Content {
			out.Content = append(out.Content, &sdk.TextContent{Text: block.Text})
		}
		return out, nil
	})
	return nil
}

// Run serves the MCP protocol over stdio until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	return h.server.Run(ctx, &sdk.StdioTransport{})
}

// toJSONSchema converts the bridge's map-shaped input schema into the SDK's
// schema type by round-tripping through JSON.
func toJSONSchema(in openapi.InputSchema) (*jsonschema.Schema, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	schema := new(jsonschema.Schema)
	if err := json.Unmarshal(data, schema); err != nil {
		return nil, err
	}
	return schema, nil
}
