package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTimer fires immediately and remembers every requested wait.
type recordingTimer struct {
	mu    *sync.Mutex
	waits *[]time.Duration
	c     chan time.Time
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	*t.waits = append(*t.waits, d)
	t.mu.Unlock()
	t.c <- time.Time{}
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time { return t.c }

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *fakeObserver) ObserveUpstream(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func newTestClient(t *testing.T, cfg Config) (*Client, *[]time.Duration) {
	t.Helper()
	var (
		mu    sync.Mutex
		waits []time.Duration
	)
	cfg.NewTimer = func() backoff.Timer {
		return &recordingTimer{mu: &mu, waits: &waits, c: make(chan time.Time, 1)}
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg), &waits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ============================================================================
// Retry and backoff
// ============================================================================

func TestFetchJSON_RetriesRateLimitThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeJSON(w, http.StatusTooManyRequests, `{"Error":"slow down"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"block":42}`)
	}))
	defer srv.Close()

	obs := &fakeObserver{}
	client, waits := newTestClient(t, Config{Observer: obs})

	res, err := client.FetchJSON(context.Background(), srv.URL, Request{Retries: Retries(2)})
	require.NoError(t, err)

	assert.JSONEq(t, `{"block":42}`, string(res.Data))
	assert.Equal(t, http.StatusOK, res.Meta.Status)
	assert.Equal(t, srv.URL, res.Meta.URL)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *waits)
	assert.Equal(t, []string{"RATE_LIMITED", "RATE_LIMITED", "ok"}, obs.outcomes)
}

func TestFetchJSON_RateLimitedAfterLastAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{}`)
	}))
	defer srv.Close()

	client, waits := newTestClient(t, Config{Retries: 1})

	_, err := client.FetchJSON(context.Background(), srv.URL, Request{})
	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CodeRateLimited, upErr.Code)
	assert.Equal(t, http.StatusTooManyRequests, upErr.Status)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *waits)
}

func TestFetchJSON_TimeoutIsRetriedThenReported(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client, waits := newTestClient(t, Config{Timeout: 20 * time.Millisecond})

	_, err := client.FetchJSON(context.Background(), srv.URL, Request{Retries: Retries(1)})
	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CodeTimeout, upErr.Code)
	assert.Equal(t, srv.URL, upErr.URL)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, *waits, 1)
}

func TestFetchJSON_NetworkErrorAfterRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	client, waits := newTestClient(t, Config{Retries: DefaultRetries})

	_, err := client.FetchJSON(context.Background(), deadURL, Request{})
	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CodeNetwork, upErr.Code)
	assert.Zero(t, upErr.Status)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, *waits)
}

func TestFetchJSON_ZeroRetriesMakesSingleAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusTooManyRequests, `{}`)
	}))
	defer srv.Close()

	client, waits := newTestClient(t, Config{Retries: 5})

	_, err := client.FetchJSON(context.Background(), srv.URL, Request{Retries: Retries(0)})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, *waits)
}

func TestFetchJSON_CanceledContextIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer srv.Close()

	client, waits := newTestClient(t, Config{Retries: DefaultRetries})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchJSON(ctx, srv.URL, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
	assert.Empty(t, *waits)
}

// ============================================================================
// Classification
// ============================================================================

func TestFetchJSON_Classification(t *testing.T) {
	t.Parallel()

	longHTML := "<html>" + strings.Repeat("x", 500) + "</html>"

	cases := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantCode    Code
	}{
		{name: "html body", status: http.StatusOK, contentType: "text/html", body: longHTML, wantCode: CodeNonJSON},
		{name: "broken json", status: http.StatusOK, contentType: "application/json", body: `{"a":`, wantCode: CodeBadJSON},
		{name: "server error with json", status: http.StatusInternalServerError, contentType: "application/json", body: `{"Error":"boom"}`, wantCode: CodeHTTPError},
		{name: "not found html", status: http.StatusNotFound, contentType: "text/plain", body: "missing", wantCode: CodeNonJSON},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client, waits := newTestClient(t, Config{Retries: DefaultRetries})
			_, err := client.FetchJSON(context.Background(), srv.URL, Request{})

			var upErr *Error
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tc.wantCode, upErr.Code)
			assert.Equal(t, tc.status, upErr.Status)
			assert.Equal(t, tc.contentType, upErr.ContentType)
			assert.LessOrEqual(t, len([]rune(upErr.BodySnippet)), 200)
			assert.Equal(t, int32(1), calls.Load(), "non-retryable failures make one attempt")
			assert.Empty(t, *waits)
		})
	}
}

func TestFetchJSON_HTTPErrorCarriesParsedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"Error":"bad address"}`)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, Config{})
	_, err := client.FetchJSON(context.Background(), srv.URL, Request{})

	var upErr *Error
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, CodeHTTPError, upErr.Code)
	assert.JSONEq(t, `{"Error":"bad address"}`, string(upErr.Data))
	assert.Contains(t, upErr.Error(), "HTTP_ERROR")
}

func TestFetchJSON_EmptyJSONBodyIsNull(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, Config{})
	res, err := client.FetchJSON(context.Background(), srv.URL, Request{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(res.Data))
}

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q; want POST", r.Method)
		}
		if got := r.Header.Get("TRON-PRO-API-KEY"); got != "k1" {
			t.Errorf("api key header = %q; want k1", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q; want application/json", got)
		}
		body, _ := io.ReadAll(r.Body)
		writeJSON(w, http.StatusOK, string(body))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, Config{})
	res, err := client.PostJSON(context.Background(), srv.URL, map[string]string{"TRON-PRO-API-KEY": "k1"}, map[string]any{"visible": true})
	require.NoError(t, err)

	var echoed map[string]bool
	require.NoError(t, res.Decode(&echoed))
	assert.True(t, echoed["visible"])
}

func TestSnippet_TruncatesToRunes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("交", 300)
	if got := []rune(snippet([]byte(long))); len(got) != maxSnippetLen {
		t.Fatalf("snippet rune length = %d; want %d", len(got), maxSnippetLen)
	}
	if got := snippet([]byte("short")); got != "short" {
		t.Fatalf("snippet = %q; want short", got)
	}
}
