package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/memorygame/internal/dependencies/mocks"
	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/storage/memory"
	"github.com/mcoot/memorygame/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger(), Config{JWTSecret: "test-secret"})
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal("alice", session.Identity.DisplayName)
	s.NotZero(session.Identity.ID)
	s.Equal(s.clock.Now().Add(time.Hour), session.ExpiresAt)
}

func (s *ServiceSuite) TestRegisterHashesPassword() {
	_, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	identity, err := s.storage.GetIdentityByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.NotEmpty(identity.CredentialHash)
	s.NotEqual("password123", identity.CredentialHash)
}

func (s *ServiceSuite) TestRegisterTrimsUsername() {
	session, err := s.service.Register(s.ctx, "  alice  ", "password123")
	s.Require().NoError(err)
	s.Equal("alice", session.Identity.DisplayName)
}

func (s *ServiceSuite) TestRegisterFailsIfUsernameExists() {
	_, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "alice", "different-pass")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterRejectsBlankUsername() {
	_, err := s.service.Register(s.ctx, "   ", "password123")
	s.ErrorIs(err, ErrInvalidUsername)
}

func (s *ServiceSuite) TestRegisterRejectsShortPassword() {
	_, err := s.service.Register(s.ctx, "alice", "short")
	s.ErrorIs(err, ErrWeakPassword)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	registered, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.NotEmpty(session.Token)
	s.Equal(registered.Identity.ID, session.Identity.ID)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Resolve tests

func (s *ServiceSuite) TestResolveEmptyCredentialIsGuest() {
	resolved, err := s.service.Resolve(s.ctx, "")
	s.Require().NoError(err)
	s.Nil(resolved)
}

func (s *ServiceSuite) TestResolveValidToken() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(s.ctx, session.Token)
	s.Require().NoError(err)
	s.Require().NotNil(resolved)
	s.Equal(session.Identity.ID, resolved.ID)
	s.Equal("alice", resolved.DisplayName)
}

func (s *ServiceSuite) TestResolveMalformedToken() {
	_, err := s.service.Resolve(s.ctx, "garbage")
	s.ErrorIs(err, model.ErrInvalidCredential)
}

func (s *ServiceSuite) TestResolveExpiredToken() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Hour)

	_, err = s.service.Resolve(s.ctx, session.Token)
	s.ErrorIs(err, model.ErrInvalidCredential)
	s.ErrorIs(err, ErrExpiredToken)
}

func (s *ServiceSuite) TestResolveTokenSignedWithOtherSecret() {
	other := New(s.storage, s.clock, testutil.NopLogger(), Config{JWTSecret: "other-secret"})
	session, err := other.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	_, err = s.service.Resolve(s.ctx, session.Token)
	s.ErrorIs(err, model.ErrInvalidCredential)
}

func (s *ServiceSuite) TestResolveDeletedIdentity() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.Require().NoError(s.service.DeleteIdentity(s.ctx, session.Identity.ID))

	_, err = s.service.Resolve(s.ctx, session.Token)
	s.ErrorIs(err, model.ErrUnknownIdentity)
}

// DeleteIdentity tests

func (s *ServiceSuite) TestDeleteIdentityCascadesScores() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	id := session.Identity.ID
	s.Require().NoError(s.storage.InsertScore(s.ctx, &model.ScoreRecord{DisplayName: "alice", Score: 10, IdentityID: &id}))

	s.Require().NoError(s.service.DeleteIdentity(s.ctx, id))

	top, err := s.storage.TopScores(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}

func (s *ServiceSuite) TestDeleteUnknownIdentity() {
	err := s.service.DeleteIdentity(s.ctx, 999)
	s.ErrorIs(err, model.ErrUnknownIdentity)
}
