package tool

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Chain is the fixed domain tag carried by every envelope.
const Chain = "TRON"

// Envelope sources.
const (
	SourceTronGrid        = "trongrid"
	SourceTronScan        = "tronscan"
	SourceLocalRobinPump  = "local-robinpump"
	SourceLocalValidation = "local-validation"
	// SourceUnrouted tags envelopes produced before a tool was resolved.
	SourceUnrouted = "tronscan/trongrid"
)

// Envelope is the single outbound shape for every tool call.
// OK is true iff Error is nil and Data is set.
type Envelope struct {
	OK      bool       `json:"ok"`
	Tool    string     `json:"tool"`
	Chain   string     `json:"chain"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Summary Summary    `json:"summary"`
	Meta    Meta       `json:"meta"`
}

type ErrorBody struct {
	Code        string  `json:"code"`
	Message     string  `json:"message"`
	Status      *int    `json:"status,omitempty"`
	ContentType *string `json:"contentType,omitempty"`
}

type Meta struct {
	TS        int64  `json:"ts"`
	Source    string `json:"source"`
	RequestID string `json:"requestId"`
}

// Summary maps a language tag (zh, en) to a one-line summary.
type Summary map[string]string

// Clock supplies meta.ts. Tests inject a fixed clock.
type Clock func() time.Time

// IDGenerator supplies meta.requestId.
type IDGenerator func() string

// NewRequestID returns a time-ordered UUIDv7.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MarshalEnvelope renders e as the text block returned inside tools/call.
// Both transports go through this function so the bytes match.
func MarshalEnvelope(e *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
