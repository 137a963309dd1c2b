package middleware

import (
	"context"
	"strconv"

	"townsquare/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceHeader echoes the server span's trace id back to the client.
const TraceHeader = "X-Trace-ID"

// TracingMiddleware opens a server span per request, continuing any
// W3C trace context the caller sent.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(parent, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.path", c.Path()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set(TraceHeader, traceID)
		c.SetUserContext(context.WithValue(ctx, TraceIDKey, traceID))

		err := c.Next()

		// Name by route template once routing has matched, so /posts/:id is
		// one span name rather than one per post.
		if route := c.Route(); route != nil && route.Path != "" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
		}

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case status >= fiber.StatusInternalServerError:
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		}

		if userID, ok := c.Locals("userID").(uuid.UUID); ok {
			span.SetAttributes(attribute.String("user.id", userID.String()))
		}
		return err
	}
}
