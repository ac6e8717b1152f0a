package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool"
)

// Observer counts handled RPCs. outcome is "ok", "notification" or the
// JSON-RPC error code.
type Observer interface {
	ObserveRPC(transport, method, outcome string)
}

type Config struct {
	Info      ServerInfo
	Transport string
	Logger    *slog.Logger
	Observer  Observer
}

// Handler maps one JSON-RPC message onto the tool dispatcher. It is safe for
// concurrent use; every binding shares the same dispatcher.
type Handler struct {
	dispatcher *tool.Dispatcher
	info       ServerInfo
	transport  string
	logger     *slog.Logger
	observer   Observer
}

func NewHandler(dispatcher *tool.Dispatcher, cfg Config) *Handler {
	if cfg.Info.Name == "" {
		cfg.Info.Name = ServerName
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		dispatcher: dispatcher,
		info:       cfg.Info,
		transport:  cfg.Transport,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
	}
}

// HandleRaw decodes one message and handles it. A nil response means the
// message was a notification and nothing must be written back.
func (h *Handler) HandleRaw(ctx context.Context, raw []byte) *Response {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		h.observe("", fmt.Sprint(CodeParseError))
		return failure(nil, CodeParseError, "Parse error", nil)
	}
	if trimmed[0] != '{' {
		h.observe("", fmt.Sprint(CodeInvalidRequest))
		return failure(nil, CodeInvalidRequest, "Invalid Request", nil)
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		h.observe("", fmt.Sprint(CodeInvalidRequest))
		return failure(idOf(trimmed), CodeInvalidRequest, "Invalid Request", nil)
	}
	return h.Handle(ctx, &req)
}

// Handle processes a decoded request. Panics become -32603 responses. A
// notification (a request without an id) is still executed but never answered.
func (h *Handler) Handle(ctx context.Context, req *Request) (resp *Response) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("rpc panicked", "method", req.Method, "panic", fmt.Sprint(r))
			resp = failure(req.ID, CodeInternalError, "Internal error", map[string]any{"message": fmt.Sprint(r)})
		}
		if req.IsNotification() && req.Method != "" {
			resp = nil
		}
		h.finish(req, resp, started)
	}()

	if req.Method == "" {
		return failure(req.ID, CodeInvalidRequest, "Invalid Request", nil)
	}
	return h.route(ctx, req)
}

func (h *Handler) route(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case MethodPing:
		return result(req.ID, struct{}{})
	case MethodInitialize:
		return result(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      h.info,
			Capabilities:    capabilities{Tools: toolsCapability{ListChanged: false}},
		})
	case MethodToolsList:
		return result(req.ID, map[string]any{"tools": h.dispatcher.Specs()})
	case MethodToolsCall:
		return h.callTool(ctx, req)
	}

	if strings.HasPrefix(req.Method, notificationPrefix) {
		return result(req.ID, struct{}{})
	}
	return failure(req.ID, CodeMethodNotFound, "Method not found", map[string]any{"method": req.Method})
}

func (h *Handler) callTool(ctx context.Context, req *Request) *Response {
	var params callParams
	if len(req.Params) > 0 && !bytes.Equal(req.Params, []byte("null")) {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return failure(req.ID, CodeInvalidParams, "Invalid params", map[string]any{"reason": reasonArgumentsObject})
		}
	}
	name, ok := params.Name.(string)
	if !ok || name == "" {
		return failure(req.ID, CodeInvalidParams, "Invalid params", map[string]any{"reason": reasonNameRequired})
	}

	_, env, text := h.dispatcher.Encode(h.dispatcher.Dispatch(ctx, name, params.Arguments))
	return result(req.ID, callResult{
		Content: []contentBlock{{Type: contentTypeText, Text: string(text)}},
		IsError: !env.OK,
	})
}

func (h *Handler) finish(req *Request, resp *Response, started time.Time) {
	outcome := "ok"
	switch {
	case resp == nil:
		outcome = "notification"
	case resp.Error != nil:
		outcome = fmt.Sprint(resp.Error.Code)
	}
	h.observe(req.Method, outcome)

	attrs := []any{
		"transport", h.transport,
		"method", req.Method,
		"rpc_id", string(req.ID),
		"latency_ms", time.Since(started).Milliseconds(),
	}
	if resp != nil && resp.Error != nil {
		h.logger.Warn("rpc failed", append(attrs, "rpc_code", resp.Error.Code)...)
		return
	}
	h.logger.Debug("rpc handled", attrs...)
}

func (h *Handler) observe(method, outcome string) {
	if h.observer != nil {
		h.observer.ObserveRPC(h.transport, method, outcome)
	}
}

// idOf recovers the id of an object that failed to decode as a Request,
// e.g. because method was not a string.
func idOf(raw []byte) json.RawMessage {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe["id"]
}
