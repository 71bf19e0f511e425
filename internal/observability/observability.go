// internal/observability/observability.go
package observability

import (
	"net/http"
	"time"

	"realmgate/internal/config"
	"realmgate/internal/httputils"
	"realmgate/internal/observability/logging"
	"realmgate/internal/observability/metrics"
)

// Provider provides observability capabilities
type Provider struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
}

// NewProvider creates a new observability provider
func NewProvider(cfg *config.Config) (*Provider, error) {
	logger, err := logging.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}

	metricsCollector := metrics.NewCollector()

	return &Provider{
		Logger:  logger,
		Metrics: metricsCollector,
	}, nil
}

// Middleware creates an HTTP middleware for request observation
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Extract or create trace and span IDs
		ctx := r.Context()
		traceID := logging.GetTraceIDFromContext(ctx)
		if traceID == "" {
			traceID = logging.NewTraceID()
			ctx = logging.ContextWithTraceID(ctx, traceID)
		}

		spanID := logging.NewSpanID()
		ctx = logging.ContextWithSpanID(ctx, spanID)

		// Attach logger to context
		logger := p.Logger.WithTracing(traceID).With(logging.SpanIDKey, spanID)
		ctx = logging.ContextWithLogger(ctx, logger)

		// Create a response wrapper to capture the status code
		wrapper := httputils.NewResponseWriter(w)

		// Add trace information to response headers
		wrapper.Header().Set("X-Trace-ID", traceID)

		logger.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		r = r.WithContext(ctx)

		next.ServeHTTP(wrapper, r)

		duration := time.Since(startTime)

		p.Metrics.RecordRequest(r.Method, r.URL.Path, wrapper.StatusCode, duration)

		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes_written", wrapper.BytesWritten,
		)
	})
}

// HTTPHandler wraps a handler func with observability
func (p *Provider) HTTPHandler(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := r.Context()
		traceID := logging.NewTraceID()
		spanID := logging.NewSpanID()

		ctx = logging.ContextWithTraceID(ctx, traceID)
		ctx = logging.ContextWithSpanID(ctx, spanID)

		logger := p.Logger.With(
			logging.TraceIDKey, traceID,
			logging.SpanIDKey, spanID,
		)
		ctx = logging.ContextWithLogger(ctx, logger)

		wrapper := httputils.NewResponseWriter(w)
		wrapper.Header().Set("X-Trace-ID", traceID)

		r = r.WithContext(ctx)

		h(wrapper, r)

		duration := time.Since(startTime)
		p.Metrics.RecordRequest(r.Method, r.URL.Path, wrapper.StatusCode, duration)
	}
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (p *Provider) MetricsHandler() http.Handler {
	return metrics.Handler()
}
