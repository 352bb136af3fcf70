package db

import (
	"context"
	"fmt"
	"time"
)

// UpsertUser inserts a user row if it does not already exist. Used by the
// seeding tool so fixtures can reference submitters and reviewers.
func (db *DB) UpsertUser(ctx context.Context, id, email, displayName string, createdAt time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, toUUID(id), email, displayName, createdAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}
