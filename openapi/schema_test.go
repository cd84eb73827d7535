package openapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRef(t *testing.T) {
	root := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Pet": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
					},
					"required": []any{"name"},
				},
				"PetAlias": map[string]any{
					"$ref": "#/components/schemas/Pet",
				},
				"slash/name": map[string]any{"type": "integer"},
				"tilde~name": map[string]any{"type": "boolean"},
			},
		},
	}
	resolver := NewResolver(root)

	tests := []struct {
		name     string
		fragment any
		want     any
	}{
		{
			name:     "direct ref",
			fragment: map[string]any{"$ref": "#/components/schemas/Pet"},
			want: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
				"required": []any{"name"},
			},
		},
		{
			name:     "ref chain resolves to terminal schema",
			fragment: map[string]any{"$ref": "#/components/schemas/PetAlias"},
			want: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
				"required": []any{"name"},
			},
		},
		{
			name: "sibling keys win over the target",
			fragment: map[string]any{
				"$ref":        "#/components/schemas/Pet",
				"description": "a pet",
			},
			want: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
				"required":    []any{"name"},
				"description": "a pet",
			},
		},
		{
			name:     "escaped slash in pointer segment",
			fragment: map[string]any{"$ref": "#/components/schemas/slash~1name"},
			want:     map[string]any{"type": "integer"},
		},
		{
			name:     "escaped tilde in pointer segment",
			fragment: map[string]any{"$ref": "#/components/schemas/tilde~0name"},
			want:     map[string]any{"type": "boolean"},
		},
		{
			name:     "external ref falls back to object",
			fragment: map[string]any{"$ref": "other.yaml#/components/schemas/Pet"},
			want:     map[string]any{"type": "object"},
		},
		{
			name:     "missing pointer target falls back to object",
			fragment: map[string]any{"$ref": "#/components/schemas/Nope"},
			want:     map[string]any{"type": "object"},
		},
		{
			name:     "pointer through a non-mapping falls back to object",
			fragment: map[string]any{"$ref": "#/components/schemas/Pet/type/deeper"},
			want:     map[string]any{"type": "object"},
		},
		{
			name:     "non-mapping fragment passes through",
			fragment: "just a string",
			want:     "just a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Resolve(tt.fragment, 0))
		})
	}
}

func TestResolveAllOf(t *testing.T) {
	root := map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Base": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":   map[string]any{"type": "integer"},
						"name": map[string]any{"type": "string"},
					},
					"required": []any{"id"},
				},
			},
		},
	}
	resolver := NewResolver(root)

	fragment := map[string]any{
		"allOf": []any{
			map[string]any{"$ref": "#/components/schemas/Base"},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					// later member overwrites the earlier name property
					"name": map[string]any{"type": "integer"},
					"tag":  map[string]any{"type": "string"},
				},
				"required": []any{"id", "tag"},
			},
		},
	}

	resolved, ok := resolver.Resolve(fragment, 0).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "object", resolved["type"])
	assert.Equal(t, map[string]any{
		"id":   map[string]any{"type": "integer"},
		"name": map[string]any{"type": "integer"},
		"tag":  map[string]any{"type": "string"},
	}, resolved["properties"])
	assert.Equal(t, []string{"id", "tag"}, resolved["required"])
}

func TestResolveAllOfEmptyRequiredDropped(t *testing.T) {
	resolver := NewResolver(map[string]any{})

	resolved, ok := resolver.Resolve(map[string]any{
		"allOf": []any{
			map[string]any{"type": "object", "properties": map[string]any{"a": map[string]any{"type": "string"}}},
		},
	}, 0).(map[string]any)
	require.True(t, ok)

	_, hasRequired := resolved["required"]
	assert.False(t, hasRequired)
}

func TestResolveUnionsTakeFirstMember(t *testing.T) {
	resolver := NewResolver(map[string]any{})

	for _, keyword := range []string{"oneOf", "anyOf"} {
		t.Run(keyword, func(t *testing.T) {
			fragment := map[string]any{
				keyword: []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "integer"},
				},
				"description": "either",
			}
			assert.Equal(t, map[string]any{
				"type":        "string",
				"description": "either",
			}, resolver.Resolve(fragment, 0))
		})
	}
}

func TestResolveDepthCeiling(t *testing.T) {
	// a 15-deep ref chain terminates at the ceiling instead of recursing
	schemas := map[string]any{}
	for i := 0; i < 15; i++ {
		schemas[fmt.Sprintf("S%d", i)] = map[string]any{
			"$ref": fmt.Sprintf("#/components/schemas/S%d", i+1),
		}
	}
	schemas["S15"] = map[string]any{"type": "string"}
	resolver := NewResolver(map[string]any{
		"components": map[string]any{"schemas": schemas},
	})

	resolved := resolver.Resolve(map[string]any{"$ref": "#/components/schemas/S0"}, 0)
	assert.Equal(t, map[string]any{"type": "object"}, resolved)
}

func TestResolveCyclicRefTerminates(t *testing.T) {
	resolver := NewResolver(map[string]any{
		"components": map[string]any{
			"schemas": map[string]any{
				"Node": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"next": map[string]any{"$ref": "#/components/schemas/Node"},
					},
				},
			},
		},
	})

	resolved, ok := resolver.Resolve(map[string]any{"$ref": "#/components/schemas/Node"}, 0).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", resolved["type"])
}

func TestResolveNestedPropertiesAndItems(t *testing.T) {
	resolver := NewResolver(map[string]any{
		"definitions": map[string]any{
			"Tag": map[string]any{"type": "string"},
		},
	})

	resolved := resolver.Resolve(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/definitions/Tag"},
			},
		},
	}, 0)

	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}, resolved)
}
