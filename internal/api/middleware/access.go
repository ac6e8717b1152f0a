package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/ctxkeys"
)

// HTTPObserver counts served requests by route pattern and status.
type HTTPObserver interface {
	ObserveHTTP(route string, status int, elapsed time.Duration)
}

// AccessLog logs one line per request. Expected order in router:
// RequestID -> AccessLog -> Auth -> handlers, so rejected tokens are logged.
func AccessLog(logger *slog.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			if observer != nil {
				observer.ObserveHTTP(routeOf(r), recorder.statusCode, elapsed)
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if subject, ok := ctxkeys.Value(r.Context(), ctxkeys.Subject); ok {
				attrs = append(attrs, "subject", subject)
			}
			logger.Log(r.Context(), levelFromStatus(recorder.statusCode), "http request", attrs...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func levelFromStatus(statusCode int) slog.Level {
	switch {
	case statusCode >= 500:
		return slog.LevelError
	case statusCode >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// routeOf prefers the chi route pattern to keep metric labels bounded.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
