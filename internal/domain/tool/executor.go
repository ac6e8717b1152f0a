package tool

import (
	"context"
	"encoding/json"
)

// Spec is the catalog entry advertised by tools/list and GET /tools.
type Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	// Source tags every envelope the tool produces.
	Source string `json:"-"`
}

// Message is an untranslated summary: a catalog key plus its arguments.
type Message struct {
	Key  string
	Args []any
}

// Msg is shorthand for a Message literal.
func Msg(key string, args ...any) Message {
	return Message{Key: key, Args: args}
}

// Output is what a successful Execute returns. Data becomes envelope.data.
type Output struct {
	Data    any
	Summary Message
}

// ToolExecutor is the runtime contract for a registered tool.
// Validate runs before any I/O and reports tool-specific codes.
// Execute returns a *Failure for coded errors; any other error is reported
// as UPSTREAM_ERROR.
type ToolExecutor interface {
	Spec() Spec
	Validate(args map[string]any) *Failure
	Execute(ctx context.Context, args map[string]any) (*Output, error)
}
