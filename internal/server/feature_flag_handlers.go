package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Feature flags
// @Description Configured flag values and their state for the caller
// @Tags flags
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Failure 401 {object} models.ErrorResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return nil
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Values(),
		"evaluated": s.featureFlags.Evaluate(userID),
	})
}
