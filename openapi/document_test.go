package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	doc := parseTestDocument(t, catalogSpec)

	assert.Equal(t, "Blog API", doc.Title())
	assert.Equal(t, "1.2.3", doc.Version())
	assert.Equal(t, "https://api.example.com/v1", doc.BaseURL())
}

func TestParseDocumentYAML(t *testing.T) {
	spec := `
openapi: 3.0.0
info:
  title: YAML API
  version: "2.0"
servers:
  - url: https://yaml.example.com/
paths: {}
`
	doc, err := ParseDocument([]byte(spec))
	require.NoError(t, err)

	assert.Equal(t, "YAML API", doc.Title())
	// trailing slash is trimmed
	assert.Equal(t, "https://yaml.example.com", doc.BaseURL())
}

func TestParseDocumentInvalid(t *testing.T) {
	_, err := ParseDocument([]byte(`{"openapi": "3.0.0", "broken": `))
	assert.Error(t, err)
}

func TestBaseURLSwagger2(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want string
	}{
		{
			name: "schemes host and basePath",
			spec: `{"swagger": "2.0", "info": {"title": "Legacy", "version": "1"},
			  "schemes": ["http"], "host": "legacy.example.com", "basePath": "/v2/", "paths": {}}`,
			want: "http://legacy.example.com/v2",
		},
		{
			name: "host only defaults to https",
			spec: `{"swagger": "2.0", "info": {"title": "Legacy", "version": "1"},
			  "host": "legacy.example.com", "paths": {}}`,
			want: "https://legacy.example.com",
		},
		{
			name: "no server information",
			spec: `{"openapi": "3.0.0", "info": {"title": "Local", "version": "1"}, "paths": {}}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.spec))
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.BaseURL())
		})
	}
}

func TestPathKeysDocumentOrder(t *testing.T) {
	// deliberately not in lexicographic order
	spec := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Ordered", "version": "1"},
	  "paths": {
	    "/zebras": {"get": {"operationId": "z"}},
	    "/apples": {"get": {"operationId": "a"}},
	    "/mangos": {"get": {"operationId": "m"}}
	  }
	}`
	doc := parseTestDocument(t, spec)

	assert.Equal(t, []string{"/zebras", "/apples", "/mangos"}, doc.PathKeys())
}

func TestPathKeysNoPaths(t *testing.T) {
	doc := parseTestDocument(t, `{"openapi": "3.0.0", "info": {"title": "X", "version": "1"}}`)
	assert.Empty(t, doc.PathKeys())
}
