package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/mcp"
)

// MCPHandler bridges one JSON-RPC message per POST onto the protocol layer.
type MCPHandler struct {
	rpc *mcp.Handler
}

func NewMCPHandler(rpc *mcp.Handler) *MCPHandler {
	return &MCPHandler{rpc: rpc}
}

// Serve handles POST /mcp. Protocol errors travel in the JSON-RPC error
// member with HTTP 200; notifications get 204 and no body.
func (h *MCPHandler) Serve(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	resp := h.rpc.HandleRaw(r.Context(), raw)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
