package tool

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrToolValidationFailed = errors.New("tool params validation failed")

// validateAgainstSchema checks input against the subset of JSON Schema the
// catalog uses: type, properties, required, additionalProperties, enum,
// minimum, maximum, exclusiveMinimum, exclusiveMaximum and anyOf-of-required.
func validateAgainstSchema(input, schema map[string]any) error {
	if input == nil {
		input = map[string]any{}
	}
	return validateObject("", input, schema)
}

func validateObject(path string, input, schema map[string]any) error {
	for _, key := range extractStringSlice(schema["required"]) {
		if _, ok := input[key]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrToolValidationFailed, joinPath(path, key))
		}
	}

	if alternatives, ok := schema["anyOf"].([]any); ok && len(alternatives) > 0 {
		if err := validateAnyOfRequired(path, input, alternatives); err != nil {
			return err
		}
	}

	allowAdditional := true
	if v, ok := schema["additionalProperties"].(bool); ok {
		allowAdditional = v
	}

	props, _ := schema["properties"].(map[string]any)
	for key, value := range input {
		propSchema, known := props[key].(map[string]any)
		if !known {
			if !allowAdditional {
				return fmt.Errorf("%w: unknown field %q", ErrToolValidationFailed, joinPath(path, key))
			}
			continue
		}
		if err := validateValue(joinPath(path, key), value, propSchema); err != nil {
			return err
		}
	}

	return nil
}

func validateAnyOfRequired(path string, input map[string]any, alternatives []any) error {
	options := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		altSchema, ok := alt.(map[string]any)
		if !ok {
			continue
		}
		keys := extractStringSlice(altSchema["required"])
		satisfied := true
		for _, key := range keys {
			if _, ok := input[key]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			return nil
		}
		options = append(options, strings.Join(keys, "+"))
	}
	if len(options) == 0 {
		return nil
	}
	field := "one of " + strings.Join(options, ", ")
	if path != "" {
		field = path + ": " + field
	}
	return fmt.Errorf("%w: %s is required", ErrToolValidationFailed, field)
}

func validateValue(path string, value any, schema map[string]any) error {
	if types := schemaTypes(schema["type"]); len(types) > 0 && !matchesAnyType(value, types) {
		names := make([]string, 0, len(types))
		for _, typ := range types {
			names = append(names, article(typ))
		}
		return fmt.Errorf("%w: field %q must be %s", ErrToolValidationFailed, path, strings.Join(names, " or "))
	}

	if enum, ok := schema["enum"].([]any); ok && !inEnum(value, enum) {
		return fmt.Errorf("%w: field %q must be one of %s", ErrToolValidationFailed, path, formatEnum(enum))
	}

	if n, ok := asFloat(value); ok {
		if err := checkBounds(path, n, schema); err != nil {
			return err
		}
	}

	if obj, ok := value.(map[string]any); ok {
		return validateObject(path, obj, schema)
	}
	return nil
}

func checkBounds(path string, n float64, schema map[string]any) error {
	if limit, ok := asFloat(schema["minimum"]); ok && n < limit {
		return fmt.Errorf("%w: field %q must be >= %v", ErrToolValidationFailed, path, limit)
	}
	if limit, ok := asFloat(schema["maximum"]); ok && n > limit {
		return fmt.Errorf("%w: field %q must be <= %v", ErrToolValidationFailed, path, limit)
	}
	if limit, ok := asFloat(schema["exclusiveMinimum"]); ok && n <= limit {
		return fmt.Errorf("%w: field %q must be > %v", ErrToolValidationFailed, path, limit)
	}
	if limit, ok := asFloat(schema["exclusiveMaximum"]); ok && n >= limit {
		return fmt.Errorf("%w: field %q must be < %v", ErrToolValidationFailed, path, limit)
	}
	return nil
}

// schemaTypes accepts both "type": "number" and "type": ["number", "null"].
func schemaTypes(v any) []string {
	if typ, ok := v.(string); ok {
		return []string{typ}
	}
	return extractStringSlice(v)
}

func matchesAnyType(value any, types []string) bool {
	for _, typ := range types {
		if matchesType(value, typ) {
			return true
		}
	}
	return false
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		n, ok := asFloat(value)
		return ok && !math.IsNaN(n) && !math.IsInf(n, 0)
	case "integer":
		n, ok := asFloat(value)
		return ok && !math.IsInf(n, 0) && n == math.Trunc(n)
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}

func inEnum(value any, enum []any) bool {
	for _, candidate := range enum {
		switch c := candidate.(type) {
		case string:
			if s, ok := value.(string); ok && s == c {
				return true
			}
		case bool:
			if b, ok := value.(bool); ok && b == c {
				return true
			}
		default:
			cn, cok := asFloat(candidate)
			vn, vok := asFloat(value)
			if cok && vok && cn == vn {
				return true
			}
		}
	}
	return false
}

func formatEnum(enum []any) string {
	parts := make([]string, 0, len(enum))
	for _, v := range enum {
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func article(typ string) string {
	switch typ {
	case "null":
		return "null"
	case "integer", "object", "array":
		return "an " + typ
	default:
		return "a " + typ
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func extractStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
