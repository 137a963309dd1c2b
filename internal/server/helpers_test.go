package server

import (
	"errors"
	"net/http"
	"testing"

	"townsquare/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMapServiceError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{models.NewUnauthenticatedError("x"), http.StatusUnauthorized},
		{models.NewInvalidTokenError(errors.New("bad")), http.StatusUnauthorized},
		{models.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{models.NewForbiddenError("x"), http.StatusForbidden},
		{models.NewNotFoundError("Post", 1), http.StatusNotFound},
		{models.NewEmptyPostError(), http.StatusBadRequest},
		{models.NewValidationError("x"), http.StatusBadRequest},
		{models.NewConflictError("x"), http.StatusConflict},
		{models.NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), models.ErrorCode(tt.err))
	}
}
