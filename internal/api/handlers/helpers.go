package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool"
)

const contentTypeJSON = "application/json; charset=utf-8"

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	w.Write(body) //nolint:errcheck
}

// writeEnvelope writes env with the same encoding the protocol layer embeds
// in tools/call text blocks.
func writeEnvelope(w http.ResponseWriter, d *tool.Dispatcher, statusCode int, env *tool.Envelope) {
	statusCode, _, body := d.Encode(statusCode, env)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	w.Write(body) //nolint:errcheck
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
