package server

import (
	"townsquare/internal/models"
	"townsquare/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// GetProfile handles GET /api/users/:id
// @Summary Get profile
// @Description A user's public record and their posts, newest first
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	userID, err := parseUUID(c, "id", "User")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// UpdateProfile handles PATCH /api/users/:id
// @Summary Update profile
// @Description Update your own name and/or bio. Omitted fields are left unchanged.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{name=string,bio=string} true "Profile changes"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	requesterID, err := requireUser(c)
	if err != nil {
		return nil
	}
	targetID, err := parseUUID(c, "id", "User")
	if err != nil {
		return nil
	}

	var req updateProfileRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		RequesterID: requesterID,
		TargetID:    targetID,
		Name:        req.Name,
		Bio:         req.Bio,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
