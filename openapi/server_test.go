package openapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerRequiresDocument(t *testing.T) {
	_, err := NewServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document is required")
}

func TestNewServerDerivesNameAndBaseURL(t *testing.T) {
	server, err := NewServer(WithSpecData([]byte(catalogSpec)))
	require.NoError(t, err)

	assert.Equal(t, "blog_api", server.Name())
	assert.Equal(t, "1.2.3", server.Version())
	assert.True(t, server.Usable())
}

func TestServerToolsIdempotent(t *testing.T) {
	server, err := NewServer(WithSpecData([]byte(catalogSpec)))
	require.NoError(t, err)

	first := server.Tools()
	second := server.Tools()
	require.Len(t, first, 3)
	// the catalog is built once and cached
	assert.Same(t, &first[0], &second[0])
}

func TestServerQualifiedToolNames(t *testing.T) {
	server, err := NewServer(WithSpecData([]byte(catalogSpec)), WithName("blog"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"blog__GET_users_id_posts",
		"blog__createOrder",
		"blog__GET_ping",
	}, server.QualifiedToolNames())

	assert.True(t, server.HasTool("createOrder"))
	assert.True(t, server.HasTool("blog__createOrder"))
	assert.False(t, server.HasTool("other__createOrder"))
}

func TestServerCallStripsQualifier(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		io.WriteString(w, "pong")
	}))
	defer upstream.Close()

	server, err := NewServer(
		WithSpecData([]byte(catalogSpec)),
		WithName("blog"),
		WithBaseURL(upstream.URL),
	)
	require.NoError(t, err)

	result := server.Call(context.Background(), "blog__GET_ping", nil, nil)
	assert.False(t, result.IsError)
	assert.Equal(t, "pong", resultText(t, result))
}

func TestServerDefaultHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))
		io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	server, err := NewServer(
		WithSpecData([]byte(catalogSpec)),
		WithBaseURL(upstream.URL),
		WithAuth("Bearer secret"),
		WithHeader("X-Custom", "yes"),
	)
	require.NoError(t, err)

	result := server.Call(context.Background(), "GET_ping", nil, nil)
	assert.False(t, result.IsError)
}

func TestServerEmptyPathsNotUsable(t *testing.T) {
	spec := `{"openapi": "3.0.0", "info": {"title": "Empty", "version": "1"},
	  "servers": [{"url": "https://api.example.com"}], "paths": {}}`

	server, err := NewServer(WithSpecData([]byte(spec)))
	require.NoError(t, err)

	assert.Empty(t, server.Tools())
	assert.False(t, server.Usable())
}

func TestServerNoServersNotUsable(t *testing.T) {
	spec := `{"openapi": "3.0.0", "info": {"title": "Local", "version": "1"},
	  "paths": {"/ping": {"get": {"operationId": "ping"}}}}`

	server, err := NewServer(WithSpecData([]byte(spec)))
	require.NoError(t, err)

	assert.False(t, server.Usable())
	result := server.Call(context.Background(), "ping", nil, nil)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Base URL is not configured")
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"https kept", "https://api.example.com/v1", "https://api.example.com/v1"},
		{"trailing slash trimmed", "https://api.example.com/", "https://api.example.com"},
		{"relative rejected", "/v1", ""},
		{"other scheme rejected", "ftp://files.example.com", ""},
		{"scheme without host rejected", "https://", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeBaseURL(tt.raw))
		})
	}
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Blog API", "blog_api"},
		{"  Pet Store 3.0  ", "pet_store_30"},
		{"", "openapi"},
		{"---", "openapi"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveName(tt.title))
		})
	}
}

// recordingHost captures tool registrations for mount tests.
type recordingHost struct {
	definitions []ToolDefinition
	handlers    map[string]ToolHandlerFunc
}

func (h *recordingHost) AddTool(definition ToolDefinition, handler ToolHandlerFunc) error {
	if h.handlers == nil {
		h.handlers = map[string]ToolHandlerFunc{}
	}
	h.definitions = append(h.definitions, definition)
	h.handlers[definition.Name] = handler
	return nil
}

func TestServerMount(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}))
	defer upstream.Close()

	server, err := NewServer(
		WithSpecData([]byte(catalogSpec)),
		WithBaseURL(upstream.URL),
	)
	require.NoError(t, err)

	host := &recordingHost{}
	require.NoError(t, server.Mount(host))
	require.Len(t, host.definitions, 3)

	handler := host.handlers["GET_ping"]
	require.NotNil(t, handler)
	result := handler(context.Background(), nil)
	assert.False(t, result.IsError)
	assert.Equal(t, "pong", resultText(t, result))
}

func TestServerMountUnusable(t *testing.T) {
	spec := `{"openapi": "3.0.0", "info": {"title": "Empty", "version": "1"}, "paths": {}}`
	server, err := NewServer(WithSpecData([]byte(spec)))
	require.NoError(t, err)

	err = server.Mount(&recordingHost{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no callable tools")
}
