// Package api wires the HTTP bridge: a chi router exposing the tool catalog,
// the plain /call endpoint and the JSON-RPC /mcp endpoint.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/handlers"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/middleware"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/domain/tool"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/infra/metrics"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/mcp"
)

// MaxBodyBytes caps request bodies on every route.
const MaxBodyBytes = 1 << 20

// Deps are the services the router exposes. Metrics may be nil. A nil
// Verifier leaves /call and /mcp open.
type Deps struct {
	Dispatcher *tool.Dispatcher
	RPC        *mcp.Handler
	Metrics    *metrics.Metrics
	Verifier   middleware.TokenVerifier
	CORSOrigin string
	Logger     *slog.Logger
}

// NewRouter creates the chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(corsHandler(deps.CORSOrigin))
	r.Use(chimw.RequestSize(MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found")) //nolint:errcheck
	})

	toolHandler := handlers.NewToolHandler(deps.Dispatcher)
	mcpHandler := handlers.NewMCPHandler(deps.RPC)

	// Public
	r.Get("/health", toolHandler.Health)
	r.Get("/tools", toolHandler.ListTools)
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	// Bearer-protected when a verifier is configured
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier))
		r.Post("/call", toolHandler.Call)
		r.Post("/mcp", mcpHandler.Serve)
	})

	return r
}

func corsHandler(origin string) func(http.Handler) http.Handler {
	origins := []string{"*"}
	if origin != "" {
		origins = strings.Split(origin, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler
}
