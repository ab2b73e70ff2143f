package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/smallbiznis/invoicer/http"

// GinMiddleware starts a server span per request, continuing any W3C trace
// context sent by the caller. Spans are named after the matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tracer := otel.Tracer(instrumentationName)
		method := strings.ToUpper(c.Request.Method)

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", method),
			attribute.Int("http.response.status_code", status),
		}
		if route := c.FullPath(); route != "" {
			span.SetName("HTTP " + method + " " + route)
			attrs = append(attrs, attribute.String("http.route", route))
		}
		if id := strings.TrimSpace(c.Param("id")); id != "" {
			attrs = append(attrs, attribute.String("invoicer.resource_id", id))
		}
		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			attrs = append(attrs, attribute.String("invoicer.request_id", requestID))
		}
		span.SetAttributes(attrs...)

		if status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if lastErr := c.Errors.Last(); lastErr != nil {
				msg = lastErr.Error()
			}
			span.SetStatus(codes.Error, msg)
		}
	}
}
