package server

import (
	"log/slog"
	"strings"

	"townsquare/internal/middleware"
	"townsquare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userIDLocal = "userID"

// AuthRequired guards a route with a Bearer token. A missing credential is
// UNAUTHENTICATED; a credential that fails verification is INVALID_TOKEN.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, found := strings.Cut(strings.TrimSpace(c.Get(fiber.HeaderAuthorization)), " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		userID, err := s.tokens.Verify(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		c.Locals(userIDLocal, userID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// currentUserID returns the identity attached by AuthRequired.
func currentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userIDLocal).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// requireUser reads the identity, answering 401 when a handler is reached
// without AuthRequired having run.
func requireUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := currentUserID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

func logInternal(c *fiber.Ctx, err error) {
	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
}
