package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/appwhistler/factcheckd/internal/core/domain"
)

// GetAffectedUserIDs returns the deduplicated set of users who voted on the
// fact check plus its original submitter.
func (db *DB) GetAffectedUserIDs(ctx context.Context, factCheckID string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT user_id
		FROM (
			SELECT user_id FROM fact_check_votes WHERE fact_check_id = $1
			UNION
			SELECT submitted_by AS user_id FROM fact_checks WHERE id = $1 AND submitted_by IS NOT NULL
		) AS affected_users
	`, toUUID(factCheckID))
	if err != nil {
		return nil, fmt.Errorf("select affected users: %w", err)
	}
	defer rows.Close()

	var userIDs []string

	for rows.Next() {
		var uid pgtype.UUID
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan affected user: %w", err)
		}

		userIDs = append(userIDs, fromUUID(uid))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate affected users: %w", err)
	}

	return userIDs, nil
}

// InsertNotification writes one notification row.
func (db *DB) InsertNotification(ctx context.Context, n domain.Notification) error {
	metadataJSON, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("marshal notification metadata: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, toUUID(n.UserID), n.Type, n.Title, n.Message, metadataJSON, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}
