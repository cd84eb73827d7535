package openapi

import (
	"context"
	"fmt"
)

// ToolHandlerFunc executes one tool call on behalf of a host runtime.
type ToolHandlerFunc func(ctx context.Context, args map[string]any) ToolCallResult

// ToolHost is the capability interface an agent runtime implements to mount
// tools. The bridge depends on it by injection only; which concrete host is
// wired in (builtin MCP, official SDK, something else) is the composition
// root's decision.
type ToolHost interface {
	AddTool(definition ToolDefinition, handler ToolHandlerFunc) error
}

// Mount registers every tool in the catalog with the host. It fails when the
// server is unusable so callers notice an empty or misconfigured spec before
// serving traffic.
func (s *Server) Mount(host ToolHost) error {
	s.build()
	if !s.Usable() {
		return fmt.Errorf("server %q has no callable tools", s.name)
	}

	for _, definition := range s.catalog {
		name := definition.Name
		handler := func(ctx context.Context, args map[string]any) ToolCallResult {
			return s.Call(ctx, name, args, nil)
		}
		if err := host.AddTool(definition, handler); err != nil {
			return fmt.Errorf("error registering tool %s: %w", name, err)
		}
	}
	return nil
}
