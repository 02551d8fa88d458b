package models_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"blogapi/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewNotFoundMessage("No post found with provided slug."), http.StatusNotFound},
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewFieldValidationError("nextpost", "bad"), http.StatusBadRequest},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{models.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{models.NewConflictError("dup"), http.StatusConflict},
		{models.NewExpiredError("late"), http.StatusGone},
		{models.NewInternalError(errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", models.NewForbiddenError("no")), http.StatusForbidden},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, models.StatusFor(tt.err), tt.err.Error())
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("ctx: %w", models.NewExpiredError("late"))
	assert.True(t, models.IsCode(err, models.CodeExpired))
	assert.False(t, models.IsCode(err, models.CodeNotFound))
	assert.False(t, models.IsCode(nil, models.CodeExpired))
}
