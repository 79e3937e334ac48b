package handler

import (
	"net/http"

	"github.com/mcoot/memorygame/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeInvalidRequest     = apierr.CodeInvalidRequest
	CodeMissingPlayerName  = apierr.CodeMissingPlayerName
	CodeMissingScoreFields = apierr.CodeMissingScoreFields
	CodeInvalidCredential  = apierr.CodeInvalidCredential
	CodeUnknownIdentity    = apierr.CodeUnknownIdentity
	CodePersistenceError   = apierr.CodePersistenceError
	CodeUnauthorized       = apierr.CodeUnauthorized
	CodeUsernameExists     = apierr.CodeUsernameExists
	CodeInvalidCredentials = apierr.CodeInvalidCredentials
	CodeInternalError      = apierr.CodeInternalError
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return apierr.NewUnauthorizedError()
}
