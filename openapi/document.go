package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pb33f/libopenapi"
	"gopkg.in/yaml.v3"
)

// Document is one parsed OpenAPI 3.x (or Swagger 2.x-shaped, best effort)
// description. The raw decoded mapping backs pointer resolution; the yaml
// root node preserves the order path entries appear in the source text.
// A Document is immutable once parsed.
type Document struct {
	root    map[string]any
	node    *yaml.Node
	title   string
	version string
}

// ParseDocument parses raw JSON or YAML spec bytes.
func ParseDocument(data []byte) (*Document, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing OpenAPI document: %w", err)
	}

	info := doc.GetSpecInfo()
	if info == nil || info.SpecJSON == nil {
		return nil, fmt.Errorf("OpenAPI document has no content")
	}

	d := &Document{
		root: *info.SpecJSON,
		node: info.RootNode,
	}
	if meta, ok := d.root["info"].(map[string]any); ok {
		d.title, _ = meta["title"].(string)
		d.version, _ = meta["version"].(string)
	}
	return d, nil
}

// Root returns the raw decoded document.
func (d *Document) Root() map[string]any { return d.root }

// Title returns info.title, or "" if absent.
func (d *Document) Title() string { return d.title }

// Version returns info.version, or "" if absent.
func (d *Document) Version() string { return d.version }

// BaseURL derives the upstream base URL from the document: servers[0].url
// for OpenAPI 3.x, or schemes/host/basePath for Swagger 2.x documents.
// Returns "" when the document names no server.
func (d *Document) BaseURL() string {
	if servers, ok := d.root["servers"].([]any); ok && len(servers) > 0 {
		if first, ok := servers[0].(map[string]any); ok {
			if u, _ := first["url"].(string); u != "" {
				return strings.TrimSuffix(u, "/")
			}
		}
	}

	if host, _ := d.root["host"].(string); host != "" {
		scheme := "https"
		if schemes, ok := d.root["schemes"].([]any); ok && len(schemes) > 0 {
			if s, _ := schemes[0].(string); s != "" {
				scheme = s
			}
		}
		basePath, _ := d.root["basePath"].(string)
		return scheme + "://" + host + strings.TrimSuffix(basePath, "/")
	}

	return ""
}

// PathKeys returns the keys of the paths object in document order, falling
// back to lexicographic order if the source node is unavailable. Either way
// the result is deterministic for a given document.
func (d *Document) PathKeys() []string {
	paths, ok := d.root["paths"].(map[string]any)
	if !ok {
		return nil
	}

	if node := mappingValue(documentRoot(d.node), "paths"); node != nil {
		keys := make([]string, 0, len(paths))
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if _, ok := paths[key]; ok {
				keys = append(keys, key)
			}
		}
		if len(keys) == len(paths) {
			return keys
		}
	}

	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func documentRoot(node *yaml.Node) *yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0]
	}
	return node
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
