// Package mcp is a minimal Model Context Protocol server speaking JSON-RPC
// over stdio. It implements the initialize handshake and the tools surface;
// resources, prompts and sampling are not served.
package mcp

import "github.com/switchboard-dev/switchboard/openapi"

// Version is the Model Context Protocol version.
const Version = "2024-11-05"

// ServerInfo identifies an MCP implementation.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities advertises what this server supports.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes the tools capability.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// InitializeResponse is the server's answer to an initialize request.
type InitializeResponse struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// ToolsListResponse is the response for the tools/list method.
type ToolsListResponse struct {
	Tools []openapi.ToolDefinition `json:"tools"`
}

// ToolCallParams are the parameters for the tools/call method.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
