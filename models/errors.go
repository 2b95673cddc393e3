package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout      = "FETCH_TIMEOUT"
	ErrCodeUnavailable  = "BACKEND_UNAVAILABLE"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeRender       = "RENDER_FAILED"
	ErrCodeBlocked      = "BLOCKED_PAGE"
	ErrCodeExtraction   = "EXTRACTION_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// Embedding-related codes for the optional semantic scorer.
	ErrCodeEmbedFailure     = "EMBEDDING_FAILURE"
	ErrCodeEmbedAuthFailure = "EMBEDDING_AUTH_FAILURE"
	ErrCodeEmbedRateLimited = "EMBEDDING_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type FetchError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(code, message string, err error) *FetchError {
	return &FetchError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *FetchError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the error code carried by err, or ErrCodeInternal when
// err is not a FetchError.
func CodeOf(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ErrCodeInternal
}
