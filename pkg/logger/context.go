package logger

import (
	"context"
	"log/slog"
)

type fieldsKey struct{}

// With records key/value pairs on ctx. Loggers resolved through Enrich or
// From afterwards carry them, so a request id set by middleware shows up in
// handler and service logs.
func With(ctx context.Context, fields ...any) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	prev := Fields(ctx)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// Fields returns the pairs recorded on ctx in the order they were added.
func Fields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]any)
	return fields
}

// Enrich binds the fields recorded on ctx to base.
func Enrich(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = LoggerWrapper()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// From is Enrich over the process logger.
func From(ctx context.Context) *slog.Logger {
	return Enrich(ctx, LoggerWrapper())
}
