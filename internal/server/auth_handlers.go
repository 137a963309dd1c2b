package server

import (
	"townsquare/internal/models"
	"townsquare/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles user registration
// @Summary Register
// @Description Create a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string,bio=string} true "Registration request"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles user login
// @Summary Login
// @Description Authenticate and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(res)
}
