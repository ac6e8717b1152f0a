package upstream

import (
	"encoding/json"
	"fmt"
)

// Code classifies a terminal upstream failure.
type Code string

const (
	CodeTimeout     Code = "TIMEOUT"
	CodeNonJSON     Code = "NON_JSON"
	CodeBadJSON     Code = "BAD_JSON"
	CodeHTTPError   Code = "HTTP_ERROR"
	CodeRateLimited Code = "RATE_LIMITED"
	CodeNetwork     Code = "NETWORK_ERROR"
)

const maxSnippetLen = 200

// Error is returned by Client.FetchJSON once an upstream call cannot succeed.
// Status and ContentType are zero when no response was received.
type Error struct {
	Code        Code
	Message     string
	URL         string
	Status      int
	ContentType string
	BodySnippet string
	// Data holds the parsed body of an HTTP_ERROR response.
	Data json.RawMessage
	Err  error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: %s (status %d, %s)", e.Code, e.Message, e.Status, e.URL)
	}
	return fmt.Sprintf("upstream %s: %s (%s)", e.Code, e.Message, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeTimeout, CodeRateLimited, CodeNetwork:
		return true
	default:
		return false
	}
}

func snippet(body []byte) string {
	runes := []rune(string(body))
	if len(runes) > maxSnippetLen {
		runes = runes[:maxSnippetLen]
	}
	return string(runes)
}
