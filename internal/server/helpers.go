package server

import (
	"errors"

	"townsquare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseUUID reads a route parameter as a uuid. An id that is not a uuid can
// never resolve, so it is answered with 404.
func parseUUID(c *fiber.Ctx, param, resource string) (uuid.UUID, error) {
	raw := c.Params(param)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError(resource, raw))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// mapServiceError translates an AppError code into an HTTP status.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeUnauthenticated, models.CodeInvalidToken, models.CodeInvalidCredentials:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeEmptyPost, models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with its mapped status. Internal failures
// are logged with the request context.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status >= fiber.StatusInternalServerError {
		logInternal(c, err)
	}
	return models.RespondWithError(c, status, err)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return models.RespondWithError(c, fiber.StatusUpgradeRequired,
		models.NewValidationError("WebSocket upgrade required"))
}
