// internal/contextutil/context.go
package contextutil

import (
	"context"

	"realmgate/internal/auth"
	"realmgate/internal/claims"
	"realmgate/internal/observability/logging"
)

// Key is a type-safe key for context values
type Key string

const (
	// RequestIDKey is the key for the request ID
	RequestIDKey Key = "context:request_id"
)

// This package is a facade over the context keys owned by the logging and
// auth packages, so every producer and consumer agrees on where a value
// lives regardless of which helper it imports.

// WithLogger adds a logger to a context
func WithLogger(ctx context.Context, logger *logging.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// GetLogger retrieves a logger from a context
func GetLogger(ctx context.Context) *logging.Logger {
	return logging.LoggerFromContext(ctx)
}

// WithTraceID adds a trace ID to a context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return logging.ContextWithTraceID(ctx, traceID)
}

// GetTraceID retrieves a trace ID from a context
func GetTraceID(ctx context.Context) string {
	return logging.GetTraceIDFromContext(ctx)
}

// WithSpanID adds a span ID to a context
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return logging.ContextWithSpanID(ctx, spanID)
}

// GetSpanID retrieves a span ID from a context
func GetSpanID(ctx context.Context) string {
	return logging.GetSpanIDFromContext(ctx)
}

// WithIdentity adds an identity to a context
func WithIdentity(ctx context.Context, identity *claims.Identity) context.Context {
	return auth.ContextWithIdentity(ctx, identity)
}

// GetIdentity retrieves an identity from a context
func GetIdentity(ctx context.Context) *claims.Identity {
	return auth.IdentityFromContext(ctx)
}

// WithAuthType adds an authentication type to a context
func WithAuthType(ctx context.Context, authType auth.AuthType) context.Context {
	return auth.ContextWithAuthType(ctx, authType)
}

// GetAuthType retrieves an authentication type from a context
func GetAuthType(ctx context.Context) auth.AuthType {
	return auth.AuthTypeFromContext(ctx)
}

// WithRequestID adds a request ID to a context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves a request ID from a context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// EnrichContext adds standard observability items to a context
func EnrichContext(ctx context.Context, logger *logging.Logger) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = logging.NewTraceID()
		ctx = WithTraceID(ctx, traceID)
	}

	spanID := logging.NewSpanID()
	ctx = WithSpanID(ctx, spanID)

	if logger != nil {
		logger = logger.With(
			logging.TraceIDKey, traceID,
			logging.SpanIDKey, spanID,
		)
		ctx = WithLogger(ctx, logger)
	}

	return ctx
}
