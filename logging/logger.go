// Package logging defines the structured-logging interface used across
// CredBoard. The only implementation wraps log/slog.
//
// Callers must never pass secret material (passwords, keys, catalogue
// contents) as log arguments.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "catalogue saved", "layout", "chunked", "chunks", 3)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn logs unusual but non-fatal conditions, such as degraded secret
	// protection.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
