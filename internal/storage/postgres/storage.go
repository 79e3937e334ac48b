package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/mcoot/memorygame/internal/model"
	"github.com/mcoot/memorygame/internal/storage"
	"github.com/mcoot/memorygame/internal/storage/postgres/migrations"
)

// SQLSTATE codes the store translates into domain errors
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Storage is a Postgres-backed implementation of the storage interface
type Storage struct {
	db *bun.DB
}

// New opens a connection pool to Postgres, optionally applying migrations
func New(ctx context.Context, cfg Config) (*Storage, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.AutoMigrate {
		if _, err := migrations.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewWithDB(db), nil
}

// NewWithDB creates a Postgres storage around an existing bun.DB (for testing)
func NewWithDB(db *bun.DB) *Storage {
	return &Storage{db: db}
}

// DB exposes the underlying connection for migrations tooling
func (s *Storage) DB() *bun.DB {
	return s.db
}

// Close closes the connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Identity operations

func (s *Storage) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	row := &identityRow{
		DisplayName:    identity.DisplayName,
		CredentialHash: identity.CredentialHash,
		CreatedAt:      identity.CreatedAt,
	}

	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return translateError(err)
	}

	identity.ID = row.ID
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id int64) (*model.Identity, error) {
	row := new(identityRow)
	err := s.db.NewSelect().Model(row).Where("i.id = ?", id).Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return row.toModel(), nil
}

func (s *Storage) GetIdentityByName(ctx context.Context, displayName string) (*model.Identity, error) {
	row := new(identityRow)
	err := s.db.NewSelect().Model(row).Where("i.display_name = ?", displayName).Scan(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return row.toModel(), nil
}

// DeleteIdentity removes the identity; ON DELETE CASCADE removes its scores
// in the same statement.
func (s *Storage) DeleteIdentity(ctx context.Context, id int64) error {
	result, err := s.db.NewDelete().
		Model((*identityRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after delete: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrIdentityNotFound
	}
	return nil
}

// Score operations

func (s *Storage) InsertScore(ctx context.Context, record *model.ScoreRecord) error {
	row := newScoreRow(record)

	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return translateError(err)
	}

	record.ID = row.ID
	return nil
}

func (s *Storage) TopScores(ctx context.Context, n int) ([]model.RankedScore, error) {
	if n <= 0 {
		return nil, model.ErrInvalidScoreLimit
	}

	var rows []rankedRow
	err := s.db.NewSelect().
		TableExpr("scores AS s").
		ColumnExpr("s.id, s.display_name, s.score, s.elapsed_seconds, s.identity_id, s.created_at").
		ColumnExpr("COALESCE(i.display_name, s.display_name) AS resolved_name").
		Join("LEFT JOIN identities AS i ON i.id = s.identity_id").
		OrderExpr("s.score DESC, s.elapsed_seconds ASC, s.id ASC").
		Limit(n).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}

	ranked := make([]model.RankedScore, 0, len(rows))
	for i, row := range rows {
		ranked = append(ranked, model.RankedScore{
			ScoreRecord: model.ScoreRecord{
				ID:             row.ID,
				DisplayName:    row.DisplayName,
				Score:          row.Score,
				ElapsedSeconds: row.ElapsedSeconds,
				IdentityID:     row.IdentityID,
				CreatedAt:      row.CreatedAt,
			},
			Rank:         i + 1,
			ResolvedName: row.ResolvedName,
		})
	}
	return ranked, nil
}

// translateError maps driver errors onto the storage sentinels
func translateError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrIdentityNotFound
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case pgUniqueViolation:
			return model.ErrDisplayNameTaken
		case pgForeignKeyViolation:
			return model.ErrIdentityNotFound
		}
	}
	return err
}
