package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool"
)

// ToolHandler serves the plain (non JSON-RPC) tool endpoints.
type ToolHandler struct {
	dispatcher *tool.Dispatcher
}

func NewToolHandler(dispatcher *tool.Dispatcher) *ToolHandler {
	return &ToolHandler{dispatcher: dispatcher}
}

type callRequest struct {
	Tool any            `json:"tool"`
	Args map[string]any `json:"args"`
}

type listToolsResponse struct {
	OK    bool        `json:"ok"`
	Tools []tool.Spec `json:"tools"`
}

// Health handles GET /health.
func (h *ToolHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListTools handles GET /tools.
func (h *ToolHandler) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, listToolsResponse{OK: true, Tools: h.dispatcher.Specs()})
}

// Call handles POST /call with body {tool, args}. The envelope status hint
// becomes the HTTP status.
func (h *ToolHandler) Call(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		status, env := h.dispatcher.RejectBody()
		writeEnvelope(w, h.dispatcher, status, env)
		return
	}

	var req callRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			status, env := h.dispatcher.RejectBody()
			writeEnvelope(w, h.dispatcher, status, env)
			return
		}
	}

	status, env := h.dispatcher.Dispatch(r.Context(), req.Tool, req.Args)
	writeEnvelope(w, h.dispatcher, status, env)
}
