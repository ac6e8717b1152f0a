package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrToolExecutorAlreadyRegistered = errors.New("tool executor already registered")
	ErrToolExecutorNotRegistered     = errors.New("tool executor not registered")
	ErrInvalidToolSpec               = errors.New("invalid tool spec")
)

// Registry is the static tool catalog. It is filled once at startup and only
// read afterwards, so lookups need no locking.
type Registry struct {
	executors map[string]ToolExecutor
	schemas   map[string]map[string]any
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]ToolExecutor),
		schemas:   make(map[string]map[string]any),
	}
}

// Register adds executor under its Spec().Name. Registration order is the
// order tools are listed in.
func (r *Registry) Register(executor ToolExecutor) error {
	if executor == nil {
		return ErrToolExecutorNotRegistered
	}
	spec := executor.Spec()
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidToolSpec)
	}
	if _, exists := r.executors[name]; exists {
		return ErrToolExecutorAlreadyRegistered
	}

	schema := map[string]any{}
	if len(spec.InputSchema) > 0 {
		if err := json.Unmarshal(spec.InputSchema, &schema); err != nil {
			return fmt.Errorf("%w: %s input schema must be a json object", ErrInvalidToolSpec, name)
		}
	}

	r.executors[name] = executor
	r.schemas[name] = schema
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (ToolExecutor, error) {
	executor, ok := r.executors[name]
	if !ok {
		return nil, ErrToolExecutorNotRegistered
	}
	return executor, nil
}

// Specs lists the catalog in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.executors[name].Spec())
	}
	return out
}

// ValidateParams applies the generic schema check for a registered tool.
func (r *Registry) ValidateParams(name string, args map[string]any) error {
	schema, ok := r.schemas[name]
	if !ok {
		return ErrToolExecutorNotRegistered
	}
	return validateAgainstSchema(args, schema)
}
