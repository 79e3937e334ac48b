package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeMissingPlayerName  = "MISSING_PLAYER_NAME"
	CodeMissingScoreFields = "MISSING_SCORE_FIELDS"
	CodeInvalidCredential  = "INVALID_CREDENTIAL"
	CodeUnknownIdentity    = "UNKNOWN_IDENTITY"
	CodePersistenceError   = "PERSISTENCE_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidUsername    = "INVALID_USERNAME"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Submission errors
	case errors.Is(err, model.ErrInvalidCredential):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredential, "Invalid or expired credential"}}
	case errors.Is(err, model.ErrUnknownIdentity):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownIdentity, "Credential refers to an unknown player"}}
	case errors.Is(err, model.ErrMissingPlayerName):
		return &httpError{http.StatusBadRequest, APIError{CodeMissingPlayerName, "Player name is required"}}
	case errors.Is(err, model.ErrMissingScoreFields):
		return &httpError{http.StatusBadRequest, APIError{CodeMissingScoreFields, "Score and time are required"}}
	case errors.Is(err, model.ErrInvalidScoreLimit):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Leaderboard size must be positive"}}
	case errors.Is(err, model.ErrPersistence):
		return &httpError{http.StatusInternalServerError, APIError{CodePersistenceError, "Failed to save or load scores"}}

	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidUsername, "Username is required and must be at most 64 characters"}}
	case errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password is too short"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewRateLimitedError creates a too-many-requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests, slow down"}}
}

// NewNotFoundError creates a not found error for unknown routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
