package trace

import (
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Middleware struct {
	logger *zap.Logger
	tracer trace.Tracer
	debug  bool
}

func NewMiddleware(logger *zap.Logger, debugMode bool) Middleware {
	return Middleware{
		logger: logger,
		tracer: otel.Tracer("trace/middleware"),
		debug:  debugMode,
	}
}

// RecoverMiddleware turns handler panics into a 500 instead of tearing the
// whole server down.
func (m Middleware) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				}
				if m.debug {
					fields = append(fields, zap.ByteString("stack", debug.Stack()))
				}
				m.logger.Error("Recovered from panic in handler", fields...)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

// TraceMiddleWare opens a server span per request and picks up an incoming
// trace context when the caller propagates one.
func (m Middleware) TraceMiddleWare(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		next(w, r.WithContext(ctx))
	}
}
