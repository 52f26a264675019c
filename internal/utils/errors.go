package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide fine-grained
// failure reasons to the controllers.
var (
	ErrCooldownActive = errors.New("cooldown_active")
	ErrCodeNotFound   = errors.New("code_not_found")
	ErrCodeExpired    = errors.New("code_expired")

	ErrEmailExists       = errors.New("email_exists")
	ErrUserNotFound      = errors.New("user_not_found")
	ErrAccountInactive   = errors.New("account_inactive")
	ErrInvalidCredential = errors.New("invalid_credentials")
	ErrAccessInvalid     = errors.New("access_invalid")
	ErrAlreadyVerified   = errors.New("already_verified")
	ErrUnknownTenant     = errors.New("unknown_tenant")

	// For external service failures (Twilio, SendGrid)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)

// AppError carries a status code and a public error code from services up to
// the controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
