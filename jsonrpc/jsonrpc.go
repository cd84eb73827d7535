// Package jsonrpc implements the subset of JSON-RPC 2.0 needed to speak the
// MCP stdio protocol.
package jsonrpc

import "encoding/json"

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// Request represents a JSON-RPC request object.
type Request struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Id      interface{}     `json:"id"`
}

// NewRequest creates a new Request object.
func NewRequest(method string, params json.RawMessage, id interface{}) Request {
	return Request{
		Version: Version,
		Method:  method,
		Params:  params,
		Id:      id,
	}
}

// IsNotification reports whether the request carries no id and therefore
// expects no response.
func (r Request) IsNotification() bool {
	return r.Id == nil
}

// Response represents a JSON-RPC response object.
type Response struct {
	Version string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      ID          `json:"id"`
}

// NewResponse creates a new Response object.
func NewResponse(id interface{}, result interface{}, err *Error) Response {
	respID, _ := NewID(id)

	return Response{
		Version: Version,
		ID:      respID,
		Result:  result,
		Error:   err,
	}
}

// Handler defines the interface for handling JSON-RPC requests.
type Handler interface {
	Handle(request Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(request Request) Response

func (f HandlerFunc) Handle(request Request) Response {
	return f(request)
}
