package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/mcoot/memorygame/internal/model"
)

type StorageSuite struct {
	suite.Suite
	sqldb   *sql.DB
	mock    sqlmock.Sqlmock
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	sqldb, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.sqldb = sqldb
	s.mock = mock
	s.storage = NewWithDB(bun.NewDB(sqldb, pgdialect.New()))
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	_ = s.sqldb.Close()
}

func (s *StorageSuite) TestCreateIdentityAssignsID() {
	s.mock.ExpectQuery(`INSERT INTO "identities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	identity := &model.Identity{
		DisplayName:    "alice",
		CredentialHash: "hash",
		CreatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.storage.CreateIdentity(s.ctx, identity))
	s.Equal(int64(12), identity.ID)
}

func (s *StorageSuite) TestGetIdentity() {
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(`SELECT .+ FROM "identities" AS "i" WHERE \(i\.id = 3\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "credential_hash", "created_at"}).
			AddRow(int64(3), "alice", "hash", createdAt))

	identity, err := s.storage.GetIdentity(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal(int64(3), identity.ID)
	s.Equal("alice", identity.DisplayName)
	s.Equal("hash", identity.CredentialHash)
	s.Equal(createdAt, identity.CreatedAt)
}

func (s *StorageSuite) TestGetIdentityNotFound() {
	s.mock.ExpectQuery(`SELECT .+ FROM "identities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "credential_hash", "created_at"}))

	_, err := s.storage.GetIdentity(s.ctx, 3)
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *StorageSuite) TestGetIdentityByName() {
	s.mock.ExpectQuery(`SELECT .+ FROM "identities" AS "i" WHERE \(i\.display_name = 'alice'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "credential_hash", "created_at"}).
			AddRow(int64(5), "alice", "hash", time.Now().UTC()))

	identity, err := s.storage.GetIdentityByName(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(5), identity.ID)
}

func (s *StorageSuite) TestDeleteIdentity() {
	s.mock.ExpectExec(`DELETE FROM "identities"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.storage.DeleteIdentity(s.ctx, 4))
}

func (s *StorageSuite) TestDeleteIdentityNotFound() {
	s.mock.ExpectExec(`DELETE FROM "identities"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.storage.DeleteIdentity(s.ctx, 4)
	s.ErrorIs(err, model.ErrIdentityNotFound)
}

func (s *StorageSuite) TestInsertScoreAssignsID() {
	s.mock.ExpectQuery(`INSERT INTO "scores"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))

	record := &model.ScoreRecord{
		DisplayName:    "guest",
		Score:          9500,
		ElapsedSeconds: 50,
		CreatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.storage.InsertScore(s.ctx, record))
	s.Equal(int64(99), record.ID)
}

func (s *StorageSuite) TestInsertScorePropagatesDriverErrors() {
	s.mock.ExpectQuery(`INSERT INTO "scores"`).
		WillReturnError(sql.ErrConnDone)

	record := &model.ScoreRecord{DisplayName: "guest", Score: 1}
	err := s.storage.InsertScore(s.ctx, record)
	s.ErrorIs(err, sql.ErrConnDone)
	s.Zero(record.ID)
}

func (s *StorageSuite) TestTopScoresMapsRows() {
	identityID := int64(7)
	createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "display_name", "score", "elapsed_seconds", "identity_id", "created_at", "resolved_name"}

	s.mock.ExpectQuery(`SELECT .+ FROM scores AS s LEFT JOIN identities AS i ON i\.id = s\.identity_id ORDER BY s\.score DESC, s\.elapsed_seconds ASC, s\.id ASC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), "old-name", int64(9000), int64(10), identityID, createdAt, "alice").
			AddRow(int64(1), "guest", int64(9000), int64(20), nil, createdAt, "guest"))

	top, err := s.storage.TopScores(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(top, 2)

	s.Equal(1, top[0].Rank)
	s.Equal(int64(2), top[0].ID)
	s.Equal("alice", top[0].ResolvedName)
	s.Equal("old-name", top[0].DisplayName)
	s.Require().NotNil(top[0].IdentityID)
	s.Equal(identityID, *top[0].IdentityID)

	s.Equal(2, top[1].Rank)
	s.Nil(top[1].IdentityID)
	s.Equal("guest", top[1].ResolvedName)
}

func (s *StorageSuite) TestTopScoresEmpty() {
	columns := []string{"id", "display_name", "score", "elapsed_seconds", "identity_id", "created_at", "resolved_name"}
	s.mock.ExpectQuery(`SELECT .+ FROM scores AS s`).
		WillReturnRows(sqlmock.NewRows(columns))

	top, err := s.storage.TopScores(s.ctx, 10)
	s.Require().NoError(err)
	s.NotNil(top)
	s.Empty(top)
}

func (s *StorageSuite) TestTopScoresRejectsNonPositiveLimitWithoutQuerying() {
	_, err := s.storage.TopScores(s.ctx, 0)
	s.ErrorIs(err, model.ErrInvalidScoreLimit)
}
