package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	// maxResponseBytes caps how much upstream response the executor will
	// buffer; anything larger is reported as an error without being read.
	maxResponseBytes = 10 << 20

	// maxErrorBodyBytes limits how much of an upstream error body is
	// echoed back in an error result.
	maxErrorBodyBytes = 500
)

// executor turns one tool invocation into one HTTP request. It holds no
// mutable state beyond the operation table built at construction, so
// concurrent calls are safe without synchronization. Retry, backoff and
// circuit breaking belong to the caller; exactly one request is attempted
// per call.
type executor struct {
	operations map[string]*Operation
	baseURL    string
	headers    http.Header
	client     *http.Client
	logger     *slog.Logger
}

// Execute runs one tool call and always returns a result, success or
// failure. Expected failures (unknown tool, missing parameter, upstream
// errors) come back as error results, never as panics or Go errors.
func (e *executor) Execute(ctx context.Context, name string, args map[string]any, extraHeaders http.Header) (result ToolCallResult) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult("Error: %v", r)
		}
	}()

	op, ok := e.operations[name]
	if !ok {
		return errorResult("Unknown tool: %s", name)
	}
	if e.baseURL == "" {
		return errorResult("Base URL is not configured: the spec names no server and no override was provided")
	}

	switch op.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return errorResult("Unsupported HTTP method: %s", op.Method)
	}

	path := op.PathTemplate
	for _, param := range pathParamNames(path) {
		value, ok := args[param]
		if !ok {
			return errorResult("Missing required path parameter: %s", param)
		}
		// PathEscape also encodes "/" so a value cannot smuggle in extra
		// path segments
		path = strings.ReplaceAll(path, "{"+param+"}", url.PathEscape(argString(value)))
	}

	query := url.Values{}
	for _, param := range op.Parameters {
		if param.In != "query" {
			continue
		}
		if value, ok := args[param.Name]; ok {
			query.Set(param.Name, argString(value))
		}
	}

	// only fields the spec declared are forwarded; anything else is dropped
	body := map[string]any{}
	if props, ok := op.BodySchema["properties"].(map[string]any); ok {
		for name := range props {
			if value, ok := args[name]; ok {
				body[name] = value
			}
		}
	}

	requestURL := e.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	var reader io.Reader
	sendBody := len(body) > 0 && op.Method != http.MethodGet && op.Method != http.MethodDelete
	if sendBody {
		payload, err := json.Marshal(body)
		if err != nil {
			return errorResult("Error encoding request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, requestURL, reader)
	if err != nil {
		return errorResult("Error creating request: %v", err)
	}
	mergeHeaders(req.Header, e.headers)
	mergeHeaders(req.Header, extraHeaders)
	if sendBody {
		req.Header.Set("Content-Type", "application/json")
	}

	e.logger.Debug("calling upstream", "tool", name, "method", op.Method, "url", requestURL)

	resp, err := e.client.Do(req)
	if err != nil {
		switch {
		case isTimeout(err):
			return errorResult("Request timed out: %s %s", op.Method, requestURL)
		case isConnectionError(err):
			return errorResult("Connection failed: %s %s: %v", op.Method, requestURL, err)
		default:
			return errorResult("Error making request: %v", err)
		}
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxResponseBytes {
		return errorResult("Response too large: %d bytes exceeds the %d byte limit", resp.ContentLength, maxResponseBytes)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		if isTimeout(err) {
			return errorResult("Request timed out: %s %s", op.Method, requestURL)
		}
		return errorResult("Error reading response: %v", err)
	}
	if len(respBody) > maxResponseBytes {
		return errorResult("Response too large: body exceeds the %d byte limit", maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := string(respBody)
		if len(detail) > maxErrorBodyBytes {
			detail = detail[:maxErrorBodyBytes]
		}
		return errorResult("HTTP %d: %s", resp.StatusCode, detail)
	}

	text := string(respBody)
	if isJSONContentType(resp.Header.Get("Content-Type")) {
		var decoded any
		if err := json.Unmarshal(respBody, &decoded); err == nil {
			if pretty, err := json.MarshalIndent(decoded, "", "  "); err == nil {
				text = string(pretty)
			}
		}
	}

	return ToolCallResult{
		Content: []Content{TextContent(text)},
		Metadata: map[string]any{
			"status_code": resp.StatusCode,
			"url":         requestURL,
			"method":      op.Method,
		},
	}
}

// argString renders a decoded JSON argument for URL use.
func argString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if f, ok := value.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(value)
}

func mergeHeaders(dst, src http.Header) {
	for key, values := range src {
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isJSONContentType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
