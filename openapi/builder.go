package openapi

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/switchboard-dev/switchboard/internal/config"
)

// catalogMethods fixes the per-path iteration order so catalogs come out
// identical across runs.
var catalogMethods = []string{"get", "post", "put", "patch", "delete"}

// buildCatalog walks every path operation in the document and emits one tool
// definition each, in document order. It returns the catalog together with
// the operation lookup table keyed by tool name.
func buildCatalog(doc *Document, filter *config.Config, logger *slog.Logger) ([]ToolDefinition, map[string]*Operation) {
	resolver := NewResolver(doc.Root())
	catalog := []ToolDefinition{}
	operations := map[string]*Operation{}

	paths, _ := doc.Root()["paths"].(map[string]any)
	for _, path := range doc.PathKeys() {
		item, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		if filter != nil && filter.IsPathDisabled(path) {
			continue
		}

		for _, method := range catalogMethods {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}

			verb := strings.ToUpper(method)
			if filter != nil && filter.IsOperationDisabled(verb) {
				continue
			}

			id, _ := op["operationId"].(string)
			if id == "" {
				id = synthesizeOperationID(verb, path)
			}
			if filter != nil && filter.IsEndpointDisabled(id) {
				continue
			}
			if _, taken := operations[id]; taken {
				unique := disambiguate(id, operations)
				logger.Warn("operation id collision",
					"id", id, "renamed", unique, "method", verb, "path", path)
				id = unique
			}

			definition, operation := buildTool(resolver, id, verb, path, op)
			catalog = append(catalog, definition)
			operations[id] = operation
		}
	}

	return catalog, operations
}

// disambiguate appends the smallest numeric suffix that makes id unique.
// Silently overwriting the earlier operation would drop a tool from the
// catalog, so colliding ids are renamed instead.
func disambiguate(id string, taken map[string]*Operation) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

func buildTool(resolver *Resolver, id, method, path string, op map[string]any) (ToolDefinition, *Operation) {
	operation := &Operation{ID: id, Method: method, PathTemplate: path}

	properties := map[string]any{}
	var required []string
	requiredSeen := map[string]bool{}
	addRequired := func(name string) {
		if !requiredSeen[name] {
			requiredSeen[name] = true
			required = append(required, name)
		}
	}

	placeholders := map[string]bool{}
	for _, name := range pathParamNames(path) {
		placeholders[name] = true
	}

	if params, ok := op["parameters"].([]any); ok {
		for _, raw := range params {
			// parameters may themselves be $ref'd into components
			param, ok := resolver.Resolve(raw, 0).(map[string]any)
			if !ok {
				continue
			}
			name, _ := param["name"].(string)
			if name == "" {
				continue
			}
			in, _ := param["in"].(string)
			requiredFlag, _ := param["required"].(bool)

			schema, ok := resolver.Resolve(param["schema"], 0).(map[string]any)
			if !ok || schema == nil {
				schema = objectSchema()
			}
			operation.Parameters = append(operation.Parameters, Parameter{
				Name:     name,
				In:       in,
				Required: requiredFlag,
				Schema:   schema,
			})

			// header and cookie parameters never reach the tool schema;
			// the executor supplies those values itself
			if in != "path" && in != "query" {
				continue
			}

			properties[name] = annotateParameter(schema, param, in)
			if requiredFlag || placeholders[name] {
				addRequired(name)
			}
		}
	}

	if body, ok := resolver.Resolve(jsonBodySchema(resolver, op), 0).(map[string]any); ok && body != nil {
		operation.BodySchema = body
		if props, ok := body["properties"].(map[string]any); ok {
			// body objects are hoisted flat: top-level fields become
			// top-level tool arguments
			for name, property := range props {
				properties[name] = property
			}
		}
		for _, name := range stringSlice(body["required"]) {
			addRequired(name)
		}
	}

	definition := ToolDefinition{
		Name:        id,
		Description: toolDescription(method, path, op),
		InputSchema: InputSchema{
			Type:       "object",
			Properties: properties,
			Required:   required,
		},
	}
	return definition, operation
}

// annotateParameter copies the resolved schema and tags its description with
// the parameter location, so the agent can tell a query knob from a path
// segment.
func annotateParameter(schema, param map[string]any, in string) map[string]any {
	property := make(map[string]any, len(schema)+1)
	for key, value := range schema {
		property[key] = value
	}

	description, _ := property["description"].(string)
	if description == "" {
		description, _ = param["description"].(string)
	}
	annotation := fmt.Sprintf("(%s parameter)", in)
	if description != "" {
		annotation = description + " " + annotation
	}
	property["description"] = annotation

	if _, ok := property["default"]; !ok {
		if value, ok := param["default"]; ok {
			property["default"] = value
		}
	}
	return property
}

// jsonBodySchema digs out the application/json request body schema, or nil.
func jsonBodySchema(resolver *Resolver, op map[string]any) any {
	body, ok := resolver.Resolve(op["requestBody"], 0).(map[string]any)
	if !ok {
		return nil
	}
	content, ok := body["content"].(map[string]any)
	if !ok {
		return nil
	}
	mediaType, ok := content["application/json"].(map[string]any)
	if !ok {
		return nil
	}
	return mediaType["schema"]
}

func toolDescription(method, path string, op map[string]any) string {
	summary, _ := op["summary"].(string)
	description, _ := op["description"].(string)
	summary = strings.TrimSpace(summary)
	description = strings.TrimSpace(description)

	switch {
	case summary != "" && description != "":
		return summary + "\n\n" + description
	case description != "":
		return description
	case summary != "":
		return summary
	default:
		return method + " " + path
	}
}
