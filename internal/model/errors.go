package model

import "errors"

// Common errors used across the application
var (
	// Submission errors
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrUnknownIdentity    = errors.New("credential refers to an unknown identity")
	ErrMissingPlayerName  = errors.New("player name is required")
	ErrMissingScoreFields = errors.New("score and time are required")
	ErrPersistence        = errors.New("persistence error")

	// Storage errors
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrDisplayNameTaken  = errors.New("display name already taken")
	ErrInvalidScoreLimit = errors.New("leaderboard size must be positive")
)
