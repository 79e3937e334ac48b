package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/services/leaderboard"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func int64Ptr(v int64) *int64 {
	return &v
}

// Test: guests and a registered player share one leaderboard until the
// player deletes their account
func (s *IntegrationSuite) TestLeaderboardLifecycle() {
	// Step 1: Two guests play
	_, err := s.app.LeaderboardService.Submit(s.ctx, leaderboard.Submission{
		Name: "guest-one", Score: int64Ptr(9000), ElapsedSeconds: int64Ptr(40),
	})
	s.Require().NoError(err)
	_, err = s.app.LeaderboardService.Submit(s.ctx, leaderboard.Submission{
		Name: "guest-two", ElapsedSeconds: int64Ptr(50), Moves: int64Ptr(8),
	})
	s.Require().NoError(err)

	// Step 2: A player registers and submits under a different name
	session, err := s.app.AuthService.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.app.MockClock.Advance(time.Minute)
	record, err := s.app.LeaderboardService.Submit(s.ctx, leaderboard.Submission{
		Credential: session.Token, Name: "not-alice", Score: int64Ptr(9800), ElapsedSeconds: int64Ptr(12),
	})
	s.Require().NoError(err)
	s.Equal("alice", record.DisplayName)
	s.Equal(s.app.MockClock.Now(), record.CreatedAt)

	// Step 3: The board ranks all three
	top, err := s.app.LeaderboardService.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal("alice", top[0].ResolvedName)
	s.Equal("guest-two", top[1].ResolvedName)
	s.Equal(int64(9500), top[1].Score)
	s.Equal("guest-one", top[2].ResolvedName)

	// Step 4: The player deletes their account
	s.Require().NoError(s.app.AuthService.DeleteIdentity(s.ctx, session.Identity.ID))

	top, err = s.app.LeaderboardService.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	for _, row := range top {
		s.Nil(row.IdentityID)
	}

	// Step 5: Their old token no longer attributes scores
	_, err = s.app.LeaderboardService.Submit(s.ctx, leaderboard.Submission{
		Credential: session.Token, Score: int64Ptr(1), ElapsedSeconds: int64Ptr(1),
	})
	s.ErrorIs(err, model.ErrUnknownIdentity)
}

func (s *IntegrationSuite) TestTokenExpiresWithClock() {
	session, err := s.app.AuthService.Register(s.ctx, "bob", "password123")
	s.Require().NoError(err)

	s.app.MockClock.Advance(59 * time.Minute)
	resolved, err := s.app.AuthService.Resolve(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Equal("bob", resolved.DisplayName)

	s.app.MockClock.Advance(2 * time.Minute)
	_, err = s.app.AuthService.Resolve(s.ctx, session.Token)
	s.ErrorIs(err, model.ErrInvalidCredential)
}
