package openapi

import "strings"

// maxSchemaDepth bounds recursive resolution. Schemas that point at
// themselves, or at chains longer than this, flatten to a bare object schema
// instead of recursing without limit.
const maxSchemaDepth = 10

// Resolver flattens $ref pointers and allOf/oneOf/anyOf composites against a
// single document. Resolution is total: malformed or unresolvable constructs
// degrade to {"type": "object"} rather than failing, so one broken schema
// cannot abort catalog construction for the whole API.
//
// oneOf and anyOf collapse to their first member. Tool input schemas have no
// union representation, so callers see a single variant's shape; this is a
// documented precision loss, not a failure.
type Resolver struct {
	root map[string]any
}

// NewResolver creates a resolver over the given document root.
func NewResolver(root map[string]any) *Resolver {
	return &Resolver{root: root}
}

// Resolve flattens an arbitrary schema fragment. Non-mapping fragments are
// returned unchanged. Callers start at depth 0.
func (r *Resolver) Resolve(fragment any, depth int) any {
	if depth > maxSchemaDepth {
		return objectSchema()
	}

	schema, ok := fragment.(map[string]any)
	if !ok {
		return fragment
	}

	if ref, ok := schema["$ref"].(string); ok {
		resolved := r.Resolve(r.lookup(ref), depth+1)
		return mergeSiblings(resolved, schema, "$ref")
	}

	if members, ok := schema["allOf"].([]any); ok {
		return mergeSiblings(r.resolveAllOf(members, depth), schema, "allOf")
	}

	for _, key := range []string{"oneOf", "anyOf"} {
		if members, ok := schema[key].([]any); ok {
			if len(members) == 0 {
				return mergeSiblings(objectSchema(), schema, key)
			}
			return mergeSiblings(r.Resolve(members[0], depth+1), schema, key)
		}
	}

	out := make(map[string]any, len(schema))
	for key, value := range schema {
		out[key] = value
	}
	if properties, ok := schema["properties"].(map[string]any); ok {
		resolved := make(map[string]any, len(properties))
		for name, property := range properties {
			resolved[name] = r.Resolve(property, depth+1)
		}
		out["properties"] = resolved
	}
	if items, ok := schema["items"]; ok {
		out["items"] = r.Resolve(items, depth+1)
	}
	return out
}

// lookup walks a document-local JSON pointer. External refs and pointers
// whose segments do not resolve fall back to a generic object schema.
func (r *Resolver) lookup(ref string) any {
	if !strings.HasPrefix(ref, "#/") {
		return objectSchema()
	}

	var node any = r.root
	for _, segment := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")

		mapping, ok := node.(map[string]any)
		if !ok {
			return objectSchema()
		}
		if node, ok = mapping[segment]; !ok {
			return objectSchema()
		}
	}
	return node
}

func (r *Resolver) resolveAllOf(members []any, depth int) map[string]any {
	resolved := make([]map[string]any, 0, len(members))
	for _, member := range members {
		if m, ok := r.Resolve(member, depth+1).(map[string]any); ok {
			resolved = append(resolved, m)
		}
	}
	return mergeSchemas(resolved)
}

// mergeSchemas combines already-resolved schemas into one object schema.
// Later entries overwrite type and description, and same-named properties;
// required names accumulate in first-seen order without duplicates.
func mergeSchemas(schemas []map[string]any) map[string]any {
	properties := map[string]any{}
	merged := map[string]any{"type": "object", "properties": properties}

	var required []string
	seen := map[string]bool{}
	for _, schema := range schemas {
		if t, ok := schema["type"].(string); ok {
			merged["type"] = t
		}
		if props, ok := schema["properties"].(map[string]any); ok {
			for name, property := range props {
				properties[name] = property
			}
		}
		for _, name := range stringSlice(schema["required"]) {
			if !seen[name] {
				seen[name] = true
				required = append(required, name)
			}
		}
		if description, ok := schema["description"].(string); ok {
			merged["description"] = description
		}
	}
	if len(required) > 0 {
		merged["required"] = required
	}
	return merged
}

// mergeSiblings layers the keys of the original fragment, minus the consumed
// keyword, over a resolved result. Siblings win on collision.
func mergeSiblings(resolved any, original map[string]any, consumed string) any {
	if len(original) <= 1 {
		return resolved
	}
	base, ok := resolved.(map[string]any)
	if !ok {
		return resolved
	}

	out := make(map[string]any, len(base)+len(original))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range original {
		if key != consumed {
			out[key] = value
		}
	}
	return out
}

func objectSchema() map[string]any {
	return map[string]any{"type": "object"}
}

// stringSlice coerces a decoded JSON value into a string slice, skipping
// non-string members.
func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
