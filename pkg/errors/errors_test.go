package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without internal error",
			err:      NewAuthenticationError("Invalid token"),
			expected: "authentication: Invalid token",
		},
		{
			name:     "with internal error",
			err:      NewInternalError("Failed to create account", stderrors.New("boom")),
			expected: "internal: Failed to create account (boom)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_WithStatus(t *testing.T) {
	base := NewExternalError("Kakao profile request failed", nil)

	upstream := base.WithStatus(http.StatusTooManyRequests)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, http.StatusBadGateway, base.StatusCode, "original must not change")

	unchanged := base.WithStatus(0)
	assert.Equal(t, http.StatusBadGateway, unchanged.StatusCode)
}

func TestFromError(t *testing.T) {
	appErr := NewValidationError("email is required", nil)
	wrapped := fmt.Errorf("register: %w", appErr)

	got, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Same(t, appErr, got)

	_, ok = FromError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(NewValidationError("x", nil)))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(fmt.Errorf("wrap: %w", NewAuthenticationError("x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(stderrors.New("plain")))
	assert.Equal(t, http.StatusNotFound, StatusCode(NewNotFoundError("x")))
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(NewRateLimitError("x")))
}
