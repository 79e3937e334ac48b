package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/memorygame/internal/dependencies/clock"
	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameExists     = errors.New("username already exists")
	ErrWeakPassword       = errors.New("password is too short")
	ErrInvalidUsername    = errors.New("username is required")
)

// MaxUsernameLength bounds registered display names
const MaxUsernameLength = 64

// Session is the result of a successful register or login
type Session struct {
	Token     string
	Identity  model.Identity
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	JWTSecret         string
	TokenTTL          time.Duration
	MinPasswordLength int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		JWTSecret:         "dev-secret-change-me",
		TokenTTL:          time.Hour,
		MinPasswordLength: 8,
	}
}

// Service registers identities, issues bearer tokens and resolves them back
// to identities
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	tokens  *TokenProvider
	logger  *slog.Logger
	tracer  trace.Tracer

	tokenTTL          time.Duration
	minPasswordLength int
}

// New creates a new auth Service
func New(storage storage.Storage, clk clock.Clock, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaults.JWTSecret
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.MinPasswordLength == 0 {
		cfg.MinPasswordLength = defaults.MinPasswordLength
	}

	return &Service{
		storage:           storage,
		clock:             clk,
		tokens:            NewTokenProvider(cfg.JWTSecret, clk),
		logger:            logger,
		tracer:            otel.Tracer("github.com/mcoot/memorygame/internal/services/auth"),
		tokenTTL:          cfg.TokenTTL,
		minPasswordLength: cfg.MinPasswordLength,
	}
}

// Tokens returns the provider used to sign and verify bearer tokens
func (s *Service) Tokens() *TokenProvider {
	return s.tokens
}

// Register creates an identity with a hashed password and issues a token for it
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, ErrInvalidUsername
	}
	if utf8.RuneCountInString(password) < s.minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &model.Identity{
		DisplayName:    username,
		CredentialHash: string(hash),
		CreatedAt:      s.clock.Now(),
	}

	if err := s.storage.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, model.ErrDisplayNameTaken) {
			return nil, ErrUsernameExists
		}
		s.recordFailure(ctx, span, "failed to create identity", err)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	span.SetAttributes(attribute.Int64("identity.id", identity.ID))
	s.logger.InfoContext(ctx, "identity registered", "identity_id", identity.ID)

	return s.issue(identity)
}

// Login verifies a username and password and issues a fresh token
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	identity, err := s.storage.GetIdentityByName(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.recordFailure(ctx, span, "failed to look up identity", err)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.CredentialHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	span.SetAttributes(attribute.Int64("identity.id", identity.ID))
	return s.issue(identity)
}

// Resolve maps a bearer credential to the identity it was issued for.
// An empty credential is a guest and resolves to nil without error.
// The display name comes from storage, not the token, so renamed or
// recreated identities are reflected immediately.
func (s *Service) Resolve(ctx context.Context, credential string) (*model.ResolvedIdentity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, nil
	}

	ctx, span := s.tracer.Start(ctx, "AuthService.Resolve")
	defer span.End()

	claims, err := s.tokens.Validate(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidCredential, err)
	}

	identity, err := s.storage.GetIdentity(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return nil, model.ErrUnknownIdentity
		}
		s.recordFailure(ctx, span, "failed to resolve identity", err)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	span.SetAttributes(attribute.Int64("identity.id", identity.ID))
	return &model.ResolvedIdentity{
		ID:          identity.ID,
		DisplayName: identity.DisplayName,
	}, nil
}

// DeleteIdentity removes an identity and every score attributed to it
func (s *Service) DeleteIdentity(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.DeleteIdentity")
	defer span.End()

	if err := s.storage.DeleteIdentity(ctx, id); err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			return model.ErrUnknownIdentity
		}
		s.recordFailure(ctx, span, "failed to delete identity", err)
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	s.logger.InfoContext(ctx, "identity deleted", "identity_id", id)
	return nil
}

func (s *Service) issue(identity *model.Identity) (*Session, error) {
	token, expiresAt, err := s.tokens.Generate(identity.ID, identity.DisplayName, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:     token,
		Identity:  *identity,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, span trace.Span, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.ErrorContext(ctx, msg, "error", err)
}
