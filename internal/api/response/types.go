package response

import (
	"time"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/services/auth"
)

// Player represents a registered player in API responses
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PlayerFromIdentity converts a resolved identity to a response Player
func PlayerFromIdentity(identity *model.ResolvedIdentity) Player {
	return Player{
		ID:   identity.ID,
		Name: identity.DisplayName,
	}
}

// AuthResponse is the response for register and login
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player: Player{
			ID:   s.Identity.ID,
			Name: s.Identity.DisplayName,
		},
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// ScoreCreated is the response for an accepted submission
type ScoreCreated struct {
	ID int64 `json:"id"`
}

// Score is one leaderboard row
type Score struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int64  `json:"score"`
	Time  int64  `json:"time"`
}

// ScoresFromRanked converts ranked rows, keeping their order
func ScoresFromRanked(ranked []model.RankedScore) []Score {
	scores := make([]Score, 0, len(ranked))
	for _, r := range ranked {
		scores = append(scores, Score{
			ID:    r.ID,
			Name:  r.ResolvedName,
			Score: r.Score,
			Time:  r.ElapsedSeconds,
		})
	}
	return scores
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}
