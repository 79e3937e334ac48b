package model

import "time"

// ScoreRecord is a single persisted game result
type ScoreRecord struct {
	ID             int64
	DisplayName    string // name at write time
	Score          int64
	ElapsedSeconds int64
	IdentityID     *int64 // nil for guest submissions
	CreatedAt      time.Time
}

// IsGuest reports whether the record is not attributed to an identity
func (r *ScoreRecord) IsGuest() bool {
	return r.IdentityID == nil
}

// RankedScore is a leaderboard row
type RankedScore struct {
	ScoreRecord

	Rank int
	// ResolvedName is the identity's current display name when the record
	// references a live identity, otherwise the stored DisplayName.
	ResolvedName string
}

// LessRanked reports whether a ranks above b: higher score first, then
// faster time, then lower id.
func LessRanked(a, b *ScoreRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ElapsedSeconds != b.ElapsedSeconds {
		return a.ElapsedSeconds < b.ElapsedSeconds
	}
	return a.ID < b.ID
}
