// Package middleware holds the HTTP middleware of the gateway bridge.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/ctxkeys"
	pkgauth "github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/auth"
)

// TokenVerifier is the minimal contract used by Auth.
// *pkgauth.Signer satisfies this interface.
type TokenVerifier interface {
	Verify(token string) (*pkgauth.Claims, error)
}

// Auth rejects requests without a valid "Authorization: Bearer <token>" and
// injects the token subject into the context. A nil verifier disables it.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := ctxkeys.WithValue(r.Context(), ctxkeys.Subject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns "" when the header is missing, uses another
// scheme, or carries an empty token.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tron-mcp"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
