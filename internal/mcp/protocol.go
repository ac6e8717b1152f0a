// Package mcp implements the JSON-RPC 2.0 protocol layer of the Model Context
// Protocol for the tool gateway, independent of the transport carrying it.
package mcp

import "encoding/json"

const (
	JSONRPCVersion  = "2.0"
	ProtocolVersion = "2024-11-05"
	ServerName      = "tron-mcp-server"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const (
	MethodInitialize      = "initialize"
	MethodPing            = "ping"
	MethodToolsList       = "tools/list"
	MethodToolsCall       = "tools/call"
	MethodCancelled       = "notifications/cancelled"
	notificationPrefix    = "notifications/"
	contentTypeText       = "text"
	reasonNameRequired    = "name is required"
	reasonArgumentsObject = "arguments must be an object"
)

// Request is an inbound JSON-RPC message. ID is nil for notifications and
// the literal null when the caller sent "id": null.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the caller expects no reply.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    capabilities `json:"capabilities"`
}

type capabilities struct {
	Tools toolsCapability `json:"tools"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

type callParams struct {
	Name      any            `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

type cancelledParams struct {
	RequestID json.RawMessage `json:"requestId"`
	Reason    string          `json:"reason,omitempty"`
}

func result(id json.RawMessage, v any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: v}
}

func failure(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: &Error{Code: code, Message: message, Data: data}}
}
