package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/mcoot/memorygame/internal/model"
)

type identityRow struct {
	bun.BaseModel `bun:"table:identities,alias:i"`

	ID             int64     `bun:"id,pk,autoincrement"`
	DisplayName    string    `bun:"display_name,notnull,unique"`
	CredentialHash string    `bun:"credential_hash,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (r *identityRow) toModel() *model.Identity {
	return &model.Identity{
		ID:             r.ID,
		DisplayName:    r.DisplayName,
		CredentialHash: r.CredentialHash,
		CreatedAt:      r.CreatedAt,
	}
}

type scoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	ID             int64     `bun:"id,pk,autoincrement"`
	DisplayName    string    `bun:"display_name,notnull"`
	Score          int64     `bun:"score,notnull"`
	ElapsedSeconds int64     `bun:"elapsed_seconds,notnull"`
	IdentityID     *int64    `bun:"identity_id"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func newScoreRow(record *model.ScoreRecord) *scoreRow {
	return &scoreRow{
		DisplayName:    record.DisplayName,
		Score:          record.Score,
		ElapsedSeconds: record.ElapsedSeconds,
		IdentityID:     record.IdentityID,
		CreatedAt:      record.CreatedAt,
	}
}

// rankedRow is one row of the leaderboard query
type rankedRow struct {
	ID             int64     `bun:"id"`
	DisplayName    string    `bun:"display_name"`
	Score          int64     `bun:"score"`
	ElapsedSeconds int64     `bun:"elapsed_seconds"`
	IdentityID     *int64    `bun:"identity_id"`
	CreatedAt      time.Time `bun:"created_at"`
	ResolvedName   string    `bun:"resolved_name"`
}
