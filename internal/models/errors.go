package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeEmptyPost          = "EMPTY_POST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewUnauthenticatedError is returned when a protected call carries no credential.
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Code: CodeUnauthenticated, Message: message}
}

// NewInvalidTokenError is returned when a credential is malformed, forged or expired.
func NewInvalidTokenError(err error) *AppError {
	return &AppError{Code: CodeInvalidToken, Message: "Invalid or expired token", Err: err}
}

func NewInvalidCredentialsError() *AppError {
	return &AppError{Code: CodeInvalidCredentials, Message: "Invalid email or password"}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewEmptyPostError() *AppError {
	return &AppError{Code: CodeEmptyPost, Message: "Post cannot be empty"}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// ErrorCode returns the AppError code carried by err, or CodeInternal.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// RespondWithError creates a standardized error response. Wrapped causes are
// only echoed for client errors; internal failures stay in the logs.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil && status < fiber.StatusInternalServerError && appErr.Code != CodeInvalidToken {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: "Internal server error",
			Code:  CodeInternal,
		}
	}

	return c.Status(status).JSON(response)
}
