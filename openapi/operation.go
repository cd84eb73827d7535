package openapi

import (
	"regexp"
	"strings"
)

// Operation holds the request-shaping metadata captured for one HTTP
// method + path template pair.
type Operation struct {
	ID           string
	Method       string
	PathTemplate string
	Parameters   []Parameter

	// BodySchema is the resolved application/json request body schema, or
	// nil when the operation declares none.
	BodySchema map[string]any
}

// Parameter is one declared operation parameter.
type Parameter struct {
	Name     string
	In       string // path, query, header or cookie
	Required bool
	Schema   map[string]any
}

var (
	idSanitizer     = regexp.MustCompile(`[^A-Za-z0-9/]`)
	pathPlaceholder = regexp.MustCompile(`\{([^{}]+)\}`)
)

// synthesizeOperationID derives a stable identifier for operations without an
// operationId, e.g. GET /users/{id}/posts becomes GET_users_id_posts.
func synthesizeOperationID(method, path string) string {
	cleaned := strings.NewReplacer("{", "", "}", "").Replace(path)
	cleaned = idSanitizer.ReplaceAllString(cleaned, "")

	parts := []string{method}
	for _, segment := range strings.Split(cleaned, "/") {
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return strings.Join(parts, "_")
}

// pathParamNames extracts {param} placeholder names from a path template, in
// order of appearance.
func pathParamNames(template string) []string {
	matches := pathPlaceholder.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}
