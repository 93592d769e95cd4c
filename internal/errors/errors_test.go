package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"collaborative-document-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrUnauthorized, http.StatusForbidden, CodeUnauthorized},
		{domain.ErrVersionRequired, http.StatusBadRequest, CodeVersionRequired},
		{fmt.Errorf("cas: %w", domain.ErrVersionConflict), http.StatusConflict, CodeVersionConflict},
		{domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
		{errors.New("db exploded"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := FromDomain(tt.err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}

	assert.Nil(t, FromDomain(nil))
}

func TestFromDomain_KeepsAPIError(t *testing.T) {
	apiErr := Unauthenticated("Invalid token!", nil)
	assert.Same(t, apiErr, FromDomain(fmt.Errorf("wrapped: %w", apiErr)))
}

func TestNewValidationError(t *testing.T) {
	type form struct {
		Title string `validate:"required"`
		Limit int    `validate:"min=1"`
	}
	err := validator.New().Struct(form{})

	apiErr := NewValidationError(err)

	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "is required", apiErr.Fields["title"])
	assert.Equal(t, "must be at least 1", apiErr.Fields["limit"])
}

func TestNewValidationError_PlainError(t *testing.T) {
	apiErr := NewValidationError(errors.New("EOF"))

	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Nil(t, apiErr.Fields)
}
