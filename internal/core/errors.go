package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Message: "Unauthorized"}
)

// APIError is a failure reported by the entity backend.
type APIError struct {
	Status  int    `json:"statusCode"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether the backend rejected the session.
func (e *APIError) IsUnauthorized() bool {
	return e.Message == "Unauthorized" || e.Status == http.StatusUnauthorized
}

// UploadError marks a failure while storing receipt files. The record call
// is never attempted after one.
type UploadError struct {
	File string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.File, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// IsUnauthorized unwraps err looking for an APIError flagged as unauthorized.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// IsUploadError reports whether err came from the file upload step.
func IsUploadError(err error) bool {
	var upErr *UploadError
	return errors.As(err, &upErr)
}
