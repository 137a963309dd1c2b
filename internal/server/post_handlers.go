package server

import (
	"io"
	"strings"

	"townsquare/internal/models"
	"townsquare/internal/service"

	"github.com/gofiber/fiber/v2"
)

type editPostRequest struct {
	Content *string `json:"content"`
}

// GetFeed handles GET /api/posts
// @Summary Feed
// @Description All posts with author names, newest first
// @Tags posts
// @Produce json
// @Success 200 {array} models.FeedItem
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	items, err := s.postService.ListFeed(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(items)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Create a post with text, an image, or both. Accepts multipart/form-data or JSON.
// @Tags posts
// @Accept mpfd,json
// @Produce json
// @Security BearerAuth
// @Param content formData string false "Post text"
// @Param image formData file false "Post image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return nil
	}

	in := service.CreatePostInput{AuthorID: userID}
	if isMultipart(c) {
		if err := readMultipartPost(c, &in); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
	} else if len(c.Body()) > 0 {
		var req struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Content = req.Content
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// EditPost handles PATCH /api/posts/:id
// @Summary Edit post
// @Description Replace the text of your own post. The image cannot be changed.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body object{content=string} true "New content"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [patch]
func (s *Server) EditPost(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return nil
	}
	postID, err := parseUUID(c, "id", "Post")
	if err != nil {
		return nil
	}

	var req editPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Content == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("content is required"))
	}

	post, err := s.postService.EditPost(c.UserContext(), service.EditPostInput{
		RequesterID: userID,
		PostID:      postID,
		Content:     *req.Content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete post
// @Description Permanently delete your own post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return nil
	}
	postID, err := parseUUID(c, "id", "Post")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		RequesterID: userID,
		PostID:      postID,
	}); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func readMultipartPost(c *fiber.Ctx, in *service.CreatePostInput) error {
	form, err := c.MultipartForm()
	if err != nil {
		return models.NewValidationError("Invalid multipart form")
	}
	if values := form.Value["content"]; len(values) > 0 {
		in.Content = values[0]
	}

	files := form.File["image"]
	if len(files) == 0 {
		return nil
	}
	header := files[0]
	f, err := header.Open()
	if err != nil {
		return models.NewValidationError("Unable to read image")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return models.NewValidationError("Unable to read image")
	}
	in.Image = &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}
	return nil
}
