package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/ctxkeys"
	"github.com/ABCLabsA/TRON-based-MCP-server-2.0/internal/api/middleware"
	pkgauth "github.com/ABCLabsA/TRON-based-MCP-server-2.0/pkg/auth"
)

const testSecret = "test-secret-key-32-chars-min!!!"

func newSigner(t *testing.T) *pkgauth.Signer {
	t.Helper()
	s, err := pkgauth.NewSigner(testSecret)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return s
}

// nextHandler sets called and records the request context.
func nextHandler(called *bool, capturedCtx *context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if capturedCtx != nil {
			*capturedCtx = r.Context()
		}
		w.WriteHeader(http.StatusOK)
	})
}

func makeRequest(header string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestAuth_RejectsMissingOrMalformedHeader(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "Bearer ", "Basic abc", "bearer abc"} {
		called := false
		handler := middleware.Auth(newSigner(t))(nextHandler(&called, nil))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, makeRequest(header))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d; want 401", header, rr.Code)
		}
		if called {
			t.Errorf("header %q: next handler must not be called", header)
		}
		if rr.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("header %q: missing WWW-Authenticate", header)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("header %q: unexpected body %q", header, rr.Body.String())
		}
	}
}

func TestAuth_RejectsInvalidToken(t *testing.T) {
	t.Parallel()

	other, err := pkgauth.NewSigner("some-other-secret-some-other!!")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := other.Issue("agent-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	called := false
	handler := middleware.Auth(newSigner(t))(nextHandler(&called, nil))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, makeRequest("Bearer "+token))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d; want 401", rr.Code)
	}
	if called {
		t.Fatal("next handler must not be called for a foreign token")
	}
}

func TestAuth_ValidTokenInjectsSubject(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	token, err := signer.Issue("agent-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	called := false
	var ctx context.Context
	handler := middleware.Auth(signer)(nextHandler(&called, &ctx))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, makeRequest("Bearer "+token))

	if rr.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want 200 and called", rr.Code, called)
	}
	if got, _ := ctxkeys.Value(ctx, ctxkeys.Subject); got != "agent-1" {
		t.Fatalf("subject = %q; want agent-1", got)
	}
}

func TestAuth_NilVerifierIsPassThrough(t *testing.T) {
	t.Parallel()

	called := false
	handler := middleware.Auth(nil)(nextHandler(&called, nil))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, makeRequest(""))

	if rr.Code != http.StatusOK || !called {
		t.Fatalf("status = %d, called = %v; want open access", rr.Code, called)
	}
}
