package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Attributed scores go with their identity; guest scores have a NULL identity_id
		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS scores (
				id BIGSERIAL PRIMARY KEY,
				display_name TEXT NOT NULL,
				score BIGINT NOT NULL CHECK (score >= 0),
				elapsed_seconds BIGINT NOT NULL CHECK (elapsed_seconds >= 0),
				identity_id BIGINT NULL REFERENCES identities (id) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create scores table: %w", err)
		}

		if _, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS scores_ranking_idx
			ON scores (score DESC, elapsed_seconds ASC, id ASC);
		`); err != nil {
			return fmt.Errorf("failed to create scores ranking index: %w", err)
		}

		if _, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS scores_identity_id_idx ON scores (identity_id);
		`); err != nil {
			return fmt.Errorf("failed to create scores identity index: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS scores;`); err != nil {
			return fmt.Errorf("failed to drop scores table: %w", err)
		}
		return nil
	})
}
