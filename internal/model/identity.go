package model

import "time"

// Identity is a registered player account
type Identity struct {
	ID             int64
	DisplayName    string // unique, doubles as the login username
	CredentialHash string // bcrypt hash
	CreatedAt      time.Time
}

// ResolvedIdentity is the result of resolving a bearer credential.
// A nil *ResolvedIdentity means the caller is a guest.
type ResolvedIdentity struct {
	ID          int64
	DisplayName string
}
