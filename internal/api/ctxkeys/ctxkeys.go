// Package ctxkeys holds the context keys shared by the API middleware and
// handlers. It is a leaf package to avoid import cycles.
package ctxkeys

import "context"

// Key is the named type for all API context keys, so string keys from other
// packages never collide.
type Key string

const (
	// Subject is the bearer token subject, injected by the auth middleware.
	Subject Key = "subject"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value returns the non-empty string stored under key.
func Value(ctx context.Context, key Key) (string, bool) {
	v, ok := ctx.Value(key).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
