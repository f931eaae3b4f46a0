package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	itemKeyKey
	requestIDKey
)

// WithRunID annotates ctx with the import run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext extracts the import run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithItemKey annotates ctx with the output filename of the item being
// imported.
func WithItemKey(ctx context.Context, key string) context.Context {
	return withString(ctx, itemKeyKey, key)
}

func ItemKeyFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, itemKeyKey)
}

// WithRequestID annotates ctx with the API request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// Empty values are not stored so lookups never report a blank id.
func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
