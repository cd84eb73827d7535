package openapi

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/switchboard-dev/switchboard/internal/config"
)

// DefaultTimeout is the per-request timeout applied when no client and no
// explicit timeout are configured.
const DefaultTimeout = 30 * time.Second

// Server is the public entry point for one OpenAPI-backed tool set. It owns
// the document, base URL, default headers and transport policy, and exposes
// the tool catalog plus dispatch by name. The catalog and operation table are
// built once and never mutated, so a Server is safe for concurrent use.
type Server struct {
	doc      *Document
	name     string
	baseURL  string
	headers  http.Header
	client   *http.Client
	timeout  time.Duration
	insecure bool
	logger   *slog.Logger
	filter   *config.Config

	buildOnce sync.Once
	catalog   []ToolDefinition
	exec      *executor
}

// ServerOption configures a Server.
type ServerOption func(*Server) error

// WithSpecData parses the given OpenAPI document bytes (JSON or YAML).
func WithSpecData(data []byte) ServerOption {
	return func(s *Server) error {
		doc, err := ParseDocument(data)
		if err != nil {
			return err
		}
		s.doc = doc
		return nil
	}
}

// WithDocument supplies an already-parsed document.
func WithDocument(doc *Document) ServerOption {
	return func(s *Server) error {
		s.doc = doc
		return nil
	}
}

// WithName sets the namespace prefix used for qualified tool names. Defaults
// to a name derived from the document title.
func WithName(name string) ServerOption {
	return func(s *Server) error {
		s.name = name
		return nil
	}
}

// WithBaseURL overrides the base URL derived from the spec's servers entry.
func WithBaseURL(baseURL string) ServerOption {
	return func(s *Server) error {
		s.baseURL = baseURL
		return nil
	}
}

// WithClient sets the HTTP client used for upstream calls. Resilience
// policies (retries, rate limits) belong to this client, not to the Server.
func WithClient(client *http.Client) ServerOption {
	return func(s *Server) error {
		s.client = client
		return nil
	}
}

// WithAuth sets the Authorization header sent on every upstream call.
func WithAuth(value string) ServerOption {
	return func(s *Server) error {
		s.headers.Set("Authorization", value)
		return nil
	}
}

// WithHeader adds a default header sent on every upstream call.
func WithHeader(key, value string) ServerOption {
	return func(s *Server) error {
		s.headers.Add(key, value)
		return nil
	}
}

// WithTimeout sets the per-request timeout for the default client.
func WithTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) error {
		s.timeout = timeout
		return nil
	}
}

// WithInsecureTLS disables TLS certificate verification on the default
// client.
func WithInsecureTLS() ServerOption {
	return func(s *Server) error {
		s.insecure = true
		return nil
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithFilter restricts which operations appear in the catalog.
func WithFilter(filter *config.Config) ServerOption {
	return func(s *Server) error {
		s.filter = filter
		return nil
	}
}

// NewServer creates a Server from the given options. An OpenAPI document is
// required; everything else has defaults.
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		headers: http.Header{},
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.doc == nil {
		return nil, fmt.Errorf("an OpenAPI document is required: use WithSpecData or WithDocument")
	}

	if s.name == "" {
		s.name = deriveName(s.doc.Title())
	}
	if s.baseURL == "" {
		s.baseURL = s.doc.BaseURL()
	}
	s.baseURL = normalizeBaseURL(s.baseURL)
	if s.baseURL == "" {
		s.logger.Warn("no usable base URL; tool calls will fail until one is configured")
	}

	if s.client == nil {
		transport := http.DefaultTransport
		if s.insecure {
			transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		}
		s.client = &http.Client{Timeout: s.timeout, Transport: transport}
	}

	return s, nil
}

func (s *Server) build() {
	s.buildOnce.Do(func() {
		catalog, operations := buildCatalog(s.doc, s.filter, s.logger)
		s.catalog = catalog
		s.exec = &executor{
			operations: operations,
			baseURL:    s.baseURL,
			headers:    s.headers,
			client:     s.client,
			logger:     s.logger,
		}
	})
}

// Name returns the namespace prefix for this server's tools.
func (s *Server) Name() string { return s.name }

// Version returns the document's info.version, or "" if absent.
func (s *Server) Version() string { return s.doc.Version() }

// Tools returns the cached tool catalog in stable construction order.
func (s *Server) Tools() []ToolDefinition {
	s.build()
	return s.catalog
}

// Usable reports whether this server can serve tool calls at all. A server
// with an empty catalog or no base URL contributes nothing and should be
// skipped rather than mounted.
func (s *Server) Usable() bool {
	s.build()
	return s.baseURL != "" && len(s.catalog) > 0
}

// QualifiedToolNames returns tool names prefixed with the server name, so
// several OpenAPI-backed tool sets can share one agent session without
// collisions.
func (s *Server) QualifiedToolNames() []string {
	s.build()
	names := make([]string, 0, len(s.catalog))
	for _, definition := range s.catalog {
		names = append(names, s.name+"__"+definition.Name)
	}
	return names
}

// HasTool reports whether the given bare or qualified name resolves to an
// operation on this server.
func (s *Server) HasTool(name string) bool {
	s.build()
	_, ok := s.exec.operations[strings.TrimPrefix(name, s.name+"__")]
	return ok
}

// Call executes the named tool. Qualified names are accepted and stripped.
// Extra headers take precedence over the server's defaults on collision.
func (s *Server) Call(ctx context.Context, name string, args map[string]any, extraHeaders http.Header) ToolCallResult {
	s.build()
	return s.exec.Execute(ctx, strings.TrimPrefix(name, s.name+"__"), args, extraHeaders)
}

// normalizeBaseURL forces anything without an http or https scheme to "";
// an invalid override degrades to unconfigured rather than producing
// relative or malformed request URLs.
func normalizeBaseURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return strings.TrimSuffix(raw, "/")
}

var nameSanitizer = regexp.MustCompile(`[^a-z0-9_]`)

// deriveName turns a document title into a usable namespace prefix.
func deriveName(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = strings.ReplaceAll(name, " ", "_")
	name = nameSanitizer.ReplaceAllString(name, "")
	if name == "" {
		return "openapi"
	}
	return name
}
