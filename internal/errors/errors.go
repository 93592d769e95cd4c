package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"collaborative-document-service/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Stable codes clients switch on. VERSION_CONFLICT is the only one where
// reloading and retrying is correct.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeVersionRequired = "VERSION_REQUIRED"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternal        = "INTERNAL"
)

// APIError is an error that knows how it should be rendered to a caller
type APIError struct {
	Status   int               `json:"-"`
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Internal error             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, code, message string, err error) *APIError {
	return &APIError{Status: status, Code: code, Message: message, Internal: err}
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, CodeNotFound, message, err)
}

func Unauthenticated(message string, err error) *APIError {
	return New(http.StatusUnauthorized, CodeUnauthenticated, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, CodeUnauthorized, message, err)
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, CodeInvalidInput, message, err)
}

func VersionRequired(message string, err error) *APIError {
	return New(http.StatusBadRequest, CodeVersionRequired, message, err)
}

func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, CodeVersionConflict, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, CodeInternal, "Internal server error", err)
}

// FromDomain translates a coordinator error into its caller-visible form.
func FromDomain(err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, domain.ErrNotFound):
		return NotFound("Document not found", err)
	case errors.Is(err, domain.ErrUnauthorized):
		return Forbidden("Not authorized", err)
	case errors.Is(err, domain.ErrVersionRequired):
		return VersionRequired("Version required", err)
	case errors.Is(err, domain.ErrVersionConflict):
		return Conflict("Version conflict", err)
	case errors.Is(err, domain.ErrInvalidInput):
		return BadRequest("Invalid input", err)
	default:
		return Internal(err)
	}
}

// NewValidationError turns binding failures into a 400 with per-field reasons.
func NewValidationError(err error) *APIError {
	apiErr := BadRequest("Invalid input", err)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apiErr
	}

	apiErr.Fields = make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		apiErr.Fields[lowerFirst(fe.Field())] = describe(fe)
	}
	return apiErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return "is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
