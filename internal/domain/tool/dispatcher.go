package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Observer receives one event per dispatch. code is "ok" on success.
type Observer interface {
	ObserveTool(tool, code string, elapsed time.Duration)
}

type DispatcherConfig struct {
	Clock      Clock
	IDs        IDGenerator
	Summarizer *Summarizer
	Logger     *slog.Logger
	Observer   Observer
}

// Dispatcher validates and routes tool calls and wraps every outcome,
// including panics, in an Envelope.
type Dispatcher struct {
	registry   *Registry
	clock      Clock
	newID      IDGenerator
	summarizer *Summarizer
	logger     *slog.Logger
	observer   Observer
}

func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDs == nil {
		cfg.IDs = NewRequestID
	}
	if cfg.Summarizer == nil {
		cfg.Summarizer = NewSummarizer(DefaultSummaryLangs)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		registry:   registry,
		clock:      cfg.Clock,
		newID:      cfg.IDs,
		summarizer: cfg.Summarizer,
		logger:     cfg.Logger,
		observer:   cfg.Observer,
	}
}

// Specs lists the catalog.
func (d *Dispatcher) Specs() []Spec {
	return d.registry.Specs()
}

// Dispatch runs the named tool and returns the HTTP status hint and envelope.
// name is untyped because it comes straight from decoded transport input.
func (d *Dispatcher) Dispatch(ctx context.Context, name any, args map[string]any) (status int, env *Envelope) {
	started := time.Now()

	toolName, ok := name.(string)
	if !ok || strings.TrimSpace(toolName) == "" {
		f := Invalid(CodeInvalidRequest, "tool must be a non-empty string")
		return f.Status, d.fail(displayName(name), SourceUnrouted, f)
	}

	executor, err := d.registry.Get(toolName)
	if err != nil {
		f := &Failure{Code: CodeToolNotFound, Message: "tool not found", Status: http.StatusNotFound}
		return f.Status, d.fail(toolName, SourceUnrouted, f)
	}
	source := executor.Spec().Source

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", toolName, "panic", fmt.Sprint(r))
			f := internalFailure(fmt.Sprintf("tool %s failed: %v", toolName, r))
			status, env = f.Status, d.fail(toolName, source, f)
		}
		d.record(toolName, env, started)
	}()

	if args == nil {
		args = map[string]any{}
	}

	if f := executor.Validate(args); f != nil {
		return f.Status, d.fail(toolName, source, f)
	}
	if err := d.registry.ValidateParams(toolName, args); err != nil {
		f := Invalid(CodeInvalidInput, strings.TrimPrefix(err.Error(), ErrToolValidationFailed.Error()+": "))
		return f.Status, d.fail(toolName, source, f)
	}

	out, err := executor.Execute(ctx, args)
	if err != nil {
		var f *Failure
		if !errors.As(err, &f) {
			f = UpstreamFailure(err)
		}
		return f.Status, d.fail(toolName, source, f)
	}
	if out == nil {
		f := internalFailure("tool returned no result")
		return f.Status, d.fail(toolName, source, f)
	}

	return http.StatusOK, &Envelope{
		OK:      true,
		Tool:    toolName,
		Chain:   Chain,
		Data:    out.Data,
		Summary: d.summarizer.Render(out.Summary),
		Meta:    d.meta(source),
	}
}

// RejectBody builds the BAD_JSON envelope for a request body that could not
// be decoded, before any tool is resolved.
func (d *Dispatcher) RejectBody() (int, *Envelope) {
	f := Invalid(CodeBadJSON, "invalid JSON body")
	return f.Status, d.fail(displayName(nil), SourceUnrouted, f)
}

// Encode renders env with MarshalEnvelope. An envelope that cannot be encoded,
// e.g. because its data holds a non-finite number, is replaced by an
// INTERNAL_ERROR envelope carrying the same tool and meta.
func (d *Dispatcher) Encode(status int, env *Envelope) (int, *Envelope, []byte) {
	body, err := MarshalEnvelope(env)
	if err == nil {
		return status, env, body
	}
	d.logger.Error("encode envelope", "tool", env.Tool, "request_id", env.Meta.RequestID, "error", err)

	f := internalFailure("tool result could not be encoded")
	fallback := d.fail(env.Tool, env.Meta.Source, f)
	fallback.Meta = env.Meta
	// The fallback holds only strings and integers.
	body, _ = MarshalEnvelope(fallback)
	return f.Status, fallback, body
}

func (d *Dispatcher) fail(toolName, source string, f *Failure) *Envelope {
	summary := Msg(msgFailure, f.Code, f.Message)
	if f.Summary != nil {
		summary = *f.Summary
	}
	return &Envelope{
		OK:      false,
		Tool:    toolName,
		Chain:   Chain,
		Error:   f.body(),
		Summary: d.summarizer.Render(summary),
		Meta:    d.meta(source),
	}
}

func (d *Dispatcher) meta(source string) Meta {
	return Meta{
		TS:        d.clock().UnixMilli(),
		Source:    source,
		RequestID: d.newID(),
	}
}

func (d *Dispatcher) record(toolName string, env *Envelope, started time.Time) {
	code := "ok"
	if env != nil && env.Error != nil {
		code = env.Error.Code
	}
	elapsed := time.Since(started)
	if d.observer != nil {
		d.observer.ObserveTool(toolName, code, elapsed)
	}
	attrs := []any{"tool", toolName, "code", code, "latency_ms", elapsed.Milliseconds()}
	if env != nil {
		attrs = append(attrs, "request_id", env.Meta.RequestID)
	}
	d.logger.Debug("tool dispatched", attrs...)
}

func displayName(name any) string {
	if name == nil {
		return "unknown"
	}
	if s, ok := name.(string); ok {
		if strings.TrimSpace(s) == "" {
			return "unknown"
		}
		return s
	}
	return fmt.Sprint(name)
}
