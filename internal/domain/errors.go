package domain

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrUnauthorized    = errors.New("not authorized")
	ErrVersionRequired = errors.New("version required")
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidInput    = errors.New("invalid input")
)
