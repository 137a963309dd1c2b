package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, nil))

	uid := uuid.New()
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, uid)
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")

	logger.With(slog.String("component", "test")).InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":"`+uid.String()+`"`)
	assert.Contains(t, out, `"trace_id":"trace-1"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestContextMiddleware_PropagatesLocals(t *testing.T) {
	app := fiber.New()
	uid := uuid.New()

	var seen context.Context
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "abc")
		c.Locals("userID", uid)
		return c.Next()
	})
	app.Use(ContextMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		seen = c.UserContext()
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.NotNil(t, seen)
	assert.Equal(t, "abc", seen.Value(RequestIDKey))
	assert.Equal(t, uid, seen.Value(UserIDKey))
}

func TestStructuredLogger_PassesThroughErrors(t *testing.T) {
	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/boom", func(_ *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
}

func TestTracingMiddleware_SetsTraceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := c.Locals("traceID").(string)
		assert.True(t, ok)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}
