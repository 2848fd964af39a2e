package mutation

import (
	"errors"
	"fmt"

	"churchadmin/internal/core"
)

// Outcome classifies the result of a mutation.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeUpload       Outcome = "upload_error"
	OutcomeError        Outcome = "error"
)

// Classify maps a mutation error to its outcome. Authorization failures win
// over upload failures so an expired session always leads back to login.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case core.IsUnauthorized(err):
		return OutcomeUnauthorized
	case core.IsUploadError(err):
		return OutcomeUpload
	default:
		return OutcomeError
	}
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a toast shown to the user after a mutation.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotificationFor builds the toast for a finished mutation.
func NotificationFor(kind core.Kind, op Operation, err error) Notification {
	switch Classify(err) {
	case OutcomeSuccess:
		return Notification{Level: LevelSuccess, Title: "Saved", Message: successMessage(kind, op)}
	case OutcomeUnauthorized:
		return Notification{
			Level:   LevelError,
			Title:   "Session expired",
			Message: "Your session is no longer valid. You will be redirected to sign in.",
		}
	case OutcomeUpload:
		return Notification{
			Level:   LevelWarning,
			Title:   "Upload failed",
			Message: "The files could not be uploaded. Refresh the page and try again.",
		}
	default:
		return Notification{Level: LevelError, Title: "Something went wrong", Message: errorMessage(err)}
	}
}

func successMessage(kind core.Kind, op Operation) string {
	switch op {
	case OpCreate:
		return fmt.Sprintf("%s created.", kind.Label())
	case OpUpdate:
		return fmt.Sprintf("%s updated.", kind.Label())
	case OpInactivate:
		return fmt.Sprintf("%s inactivated.", kind.Label())
	}
	return "Done."
}

// errorMessage prefers the backend's own message, which is written for
// users, over the wrapped Go error chain.
func errorMessage(err error) string {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "The request failed. Check the form and try again."
}
