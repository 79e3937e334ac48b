package storage

import (
	"context"

	"github.com/mcoot/memorygame/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Identity operations
	CreateIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentity(ctx context.Context, id int64) (*model.Identity, error)
	GetIdentityByName(ctx context.Context, displayName string) (*model.Identity, error)
	// DeleteIdentity removes the identity and every score attributed to it.
	DeleteIdentity(ctx context.Context, id int64) error

	// Score operations
	InsertScore(ctx context.Context, record *model.ScoreRecord) error
	TopScores(ctx context.Context, n int) ([]model.RankedScore, error)

	Close() error
}
