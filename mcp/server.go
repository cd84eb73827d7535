package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/switchboard-dev/switchboard/jsonrpc"
	"github.com/switchboard-dev/switchboard/openapi"
)

// Server processes JSON-RPC requests against one or more mounted
// OpenAPI-backed tool sets. With a single mount, tools are advertised under
// their bare names; with several, names are qualified with each mount's
// server name to keep them collision-free.
type Server struct {
	info   ServerInfo
	mounts []*openapi.Server
	logger *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerInfo sets the name and version reported during initialization.
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) {
		s.info = ServerInfo{Name: name, Version: version}
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server with no mounts.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		info:   ServerInfo{Name: "switchboard", Version: "dev"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount adds an OpenAPI-backed tool set. An unusable server (empty catalog,
// no base URL) contributes nothing and is skipped with a warning rather than
// treated as an error.
func (s *Server) Mount(api *openapi.Server) {
	if !api.Usable() {
		s.logger.Warn("skipping unusable server", "name", api.Name())
		return
	}
	s.mounts = append(s.mounts, api)
}

var _ jsonrpc.Handler = (*Server)(nil)

// Handle processes a single JSON-RPC request and returns a response.
func (s *Server) Handle(request jsonrpc.Request) jsonrpc.Response {
	switch request.Method {
	case "initialize":
		return s.handleInitialize(request)
	case "ping":
		return jsonrpc.NewResponse(request.Id, struct{}{}, nil)
	case "tools/list":
		return s.handleToolsList(request)
	case "tools/call":
		return s.handleToolsCall(request)
	case "notifications/initialized":
		return jsonrpc.NewResponse(request.Id, nil, nil)
	default:
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}
}

func (s *Server) handleInitialize(request jsonrpc.Request) jsonrpc.Response {
	result := InitializeResponse{
		ProtocolVersion: Version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: s.info,
	}
	return jsonrpc.NewResponse(request.Id, result, nil)
}

func (s *Server) handleToolsList(request jsonrpc.Request) jsonrpc.Response {
	tools := []openapi.ToolDefinition{}
	qualify := len(s.mounts) > 1
	for _, mount := range s.mounts {
		for _, definition := range mount.Tools() {
			if qualify {
				definition.Name = mount.Name() + "__" + definition.Name
			}
			tools = append(tools, definition)
		}
	}
	return jsonrpc.NewResponse(request.Id, ToolsListResponse{Tools: tools}, nil)
}

func (s *Server) handleToolsCall(request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		return jsonrpc.NewResponse(request.Id, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err.Error()))
	}

	for _, mount := range s.mounts {
		if mount.HasTool(params.Name) {
			result := mount.Call(context.Background(), params.Name, params.Arguments, nil)
			return jsonrpc.NewResponse(request.Id, result, nil)
		}
	}

	// unknown tools still get the uniform result envelope, so the calling
	// agent sees an inspectable error instead of an aborted turn
	result := openapi.ToolCallResult{
		Content: []openapi.Content{openapi.TextContent("Unknown tool: " + params.Name)},
		IsError: true,
	}
	return jsonrpc.NewResponse(request.Id, result, nil)
}
