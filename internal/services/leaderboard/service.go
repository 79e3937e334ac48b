package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/memorygame/internal/dependencies/clock"
	"github.com/mcoot/memorygame/internal/metrics"
	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/services/scoring"
	"github.com/mcoot/memorygame/internal/storage"
)

// Size is the number of rows the public leaderboard shows
const Size = 10

// IdentityResolver maps a bearer credential to an identity.
// A nil identity with a nil error means the caller is a guest.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*model.ResolvedIdentity, error)
}

// Submission is a score submission as received from a client.
// Pointer fields are nil when the client omitted them or sent a non-integer.
type Submission struct {
	Credential     string
	Name           string
	Score          *int64
	ElapsedSeconds *int64
	Moves          *int64
	Pairs          *int64
}

// Service accepts score submissions and serves the ranked leaderboard
type Service struct {
	storage  storage.Storage
	resolver IdentityResolver
	clock    clock.Clock
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a new leaderboard Service
func New(storage storage.Storage, resolver IdentityResolver, clk clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		resolver: resolver,
		clock:    clk,
		logger:   logger,
		tracer:   otel.Tracer("github.com/mcoot/memorygame/internal/services/leaderboard"),
	}
}

// Submit validates a submission, attributes it and stores it.
//
// A supplied credential always wins over the supplied name: authenticated
// callers are recorded under their identity's current display name. Nothing
// is stored unless every check passes.
func (s *Service) Submit(ctx context.Context, sub Submission) (*model.ScoreRecord, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.Submit")
	defer span.End()

	identity, err := s.resolver.Resolve(ctx, sub.Credential)
	if err != nil {
		s.reject(ctx, span, err)
		return nil, err
	}

	record := &model.ScoreRecord{CreatedAt: s.clock.Now()}

	if identity == nil {
		// Guest names are stored exactly as sent
		if sub.Name == "" {
			s.reject(ctx, span, model.ErrMissingPlayerName)
			return nil, model.ErrMissingPlayerName
		}
		record.DisplayName = sub.Name
	} else {
		identityID := identity.ID
		record.DisplayName = identity.DisplayName
		record.IdentityID = &identityID
		span.SetAttributes(attribute.Int64("identity.id", identityID))
	}

	score, elapsed, ok := scoreFields(sub)
	if !ok {
		s.reject(ctx, span, model.ErrMissingScoreFields)
		return nil, model.ErrMissingScoreFields
	}
	record.Score = score
	record.ElapsedSeconds = elapsed

	if err := s.storage.InsertScore(ctx, record); err != nil {
		if errors.Is(err, model.ErrIdentityNotFound) {
			// Identity deleted between resolve and insert
			s.reject(ctx, span, model.ErrUnknownIdentity)
			return nil, model.ErrUnknownIdentity
		}

		err = fmt.Errorf("%w: %w", model.ErrPersistence, err)
		s.reject(ctx, span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("score.id", record.ID),
		attribute.Int64("score.value", record.Score),
	)
	metrics.RecordSubmission(metrics.OutcomeAccepted)
	metrics.RecordAcceptedScore(record.Score)

	return record, nil
}

// Leaderboard returns the top Size scores
func (s *Service) Leaderboard(ctx context.Context) ([]model.RankedScore, error) {
	return s.TopN(ctx, Size)
}

// TopN returns the n best scores, best first
func (s *Service) TopN(ctx context.Context, n int) ([]model.RankedScore, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.TopN")
	defer span.End()

	if n <= 0 {
		return nil, model.ErrInvalidScoreLimit
	}

	ranked, err := s.storage.TopScores(ctx, n)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load leaderboard")
		s.logger.ErrorContext(ctx, "failed to load leaderboard", "error", err)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	metrics.RecordLeaderboardQuery()
	return ranked, nil
}

// scoreFields picks the stored score and elapsed time. A submitted score is
// kept as-is; without one, the score is derived from moves and time.
func scoreFields(sub Submission) (score, elapsed int64, ok bool) {
	if sub.ElapsedSeconds == nil || *sub.ElapsedSeconds < 0 {
		return 0, 0, false
	}
	elapsed = *sub.ElapsedSeconds

	if sub.Score != nil {
		if *sub.Score < 0 {
			return 0, 0, false
		}
		return *sub.Score, elapsed, true
	}

	if sub.Moves == nil || *sub.Moves < 0 {
		return 0, 0, false
	}

	pairs := scoring.DefaultPairCount
	if sub.Pairs != nil && *sub.Pairs > 0 {
		pairs = *sub.Pairs
	}
	return scoring.ComputeScore(pairs, *sub.Moves, elapsed), elapsed, true
}

func (s *Service) reject(ctx context.Context, span trace.Span, err error) {
	span.RecordError(err)

	switch {
	case errors.Is(err, model.ErrPersistence):
		span.SetStatus(codes.Error, "score submission failed")
		s.logger.ErrorContext(ctx, "score submission failed", "error", err)
		metrics.RecordSubmission(metrics.OutcomePersistenceError)
	case errors.Is(err, model.ErrInvalidCredential):
		metrics.RecordSubmission(metrics.OutcomeInvalidCredential)
	case errors.Is(err, model.ErrUnknownIdentity):
		metrics.RecordSubmission(metrics.OutcomeUnknownIdentity)
	case errors.Is(err, model.ErrMissingPlayerName):
		metrics.RecordSubmission(metrics.OutcomeMissingName)
	case errors.Is(err, model.ErrMissingScoreFields):
		metrics.RecordSubmission(metrics.OutcomeMissingFields)
	}
}
