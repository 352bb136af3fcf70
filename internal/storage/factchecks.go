package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/appwhistler/factcheckd/internal/core/domain"
)

const selectFactCheckColumns = `
	SELECT id, claim, verdict, confidence_score, category, sources, explanation,
	       language, submitted_by, verified_by, automated_update_count,
	       created_at, updated_at, last_verified_at
	FROM fact_checks`

// SelectStaleFactChecks returns up to limit analyst-reviewed fact checks whose
// creation and last verification both predate the cutoff, oldest first.
func (db *DB) SelectStaleFactChecks(ctx context.Context, cutoff time.Time, limit int) ([]domain.FactCheck, error) {
	rows, err := db.Pool.Query(ctx, selectFactCheckColumns+`
		WHERE created_at < $1
		  AND (last_verified_at IS NULL OR last_verified_at < $1)
		  AND verified_by IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("select stale fact checks: %w", err)
	}
	defer rows.Close()

	var checks []domain.FactCheck

	for rows.Next() {
		fc, err := scanFactCheck(rows)
		if err != nil {
			return nil, err
		}

		checks = append(checks, fc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale fact checks: %w", err)
	}

	return checks, nil
}

// GetFactCheck loads a single fact check by id.
func (db *DB) GetFactCheck(ctx context.Context, id string) (*domain.FactCheck, error) {
	row := db.Pool.QueryRow(ctx, selectFactCheckColumns+` WHERE id = $1`, toUUID(id))

	fc, err := scanFactCheck(row)
	if err != nil {
		return nil, err
	}

	return &fc, nil
}

// ApplyReverification persists a significant verdict change atomically:
// the fact check row is updated and the history row inserted in one
// transaction, so a failure leaves both absent.
func (db *DB) ApplyReverification(ctx context.Context, fc domain.FactCheck, v domain.Verification, now time.Time) error {
	sourcesJSON, err := json.Marshal(v.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reverification tx: %w", err)
	}

	defer func() {
		//nolint:errcheck // rollback after commit is a no-op
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		UPDATE fact_checks
		SET verdict = $1,
			confidence_score = $2,
			sources = $3,
			explanation = $4,
			last_verified_at = $5,
			automated_update_count = automated_update_count + 1,
			updated_at = $5
		WHERE id = $6
	`, string(v.Verdict), v.Confidence, sourcesJSON, v.Explanation, now, toUUID(fc.ID))
	if err != nil {
		return fmt.Errorf("update fact check verdict: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO fact_check_updates
			(fact_check_id, old_verdict, new_verdict, old_confidence, new_confidence, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, toUUID(fc.ID), string(fc.Verdict), string(v.Verdict), fc.ConfidenceScore, v.Confidence,
		domain.UpdateReasonAutomated, now)
	if err != nil {
		return fmt.Errorf("insert fact check update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reverification tx: %w", err)
	}

	return nil
}

// TouchLastVerified records a re-verification that produced no significant change.
func (db *DB) TouchLastVerified(ctx context.Context, factCheckID string, now time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE fact_checks
		SET last_verified_at = $2
		WHERE id = $1
	`, toUUID(factCheckID), now)
	if err != nil {
		return fmt.Errorf("touch last verified: %w", err)
	}

	return nil
}

// InsertFactCheck stores a new fact check record. Used by the seeding tool.
func (db *DB) InsertFactCheck(ctx context.Context, fc domain.FactCheck) (string, error) {
	sourcesJSON, err := json.Marshal(fc.Sources)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}

	if fc.Sources == nil {
		sourcesJSON = []byte("[]")
	}

	var id pgtype.UUID

	err = db.Pool.QueryRow(ctx, `
		INSERT INTO fact_checks
			(claim, verdict, confidence_score, category, sources, explanation, language,
			 submitted_by, verified_by, created_at, updated_at, last_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11)
		RETURNING id
	`, fc.Claim, string(fc.Verdict), fc.ConfidenceScore, fc.Category, sourcesJSON,
		fc.Explanation, fc.Language, nullableUUID(fc.SubmittedBy), nullableUUID(fc.VerifiedBy),
		fc.CreatedAt, nullableTime(fc.LastVerifiedAt)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert fact check: %w", err)
	}

	return fromUUID(id), nil
}

// GetFactCheckUpdates returns the history rows for a fact check, newest first.
func (db *DB) GetFactCheckUpdates(ctx context.Context, factCheckID string) ([]domain.FactCheckUpdate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, fact_check_id, old_verdict, new_verdict, old_confidence, new_confidence, reason, created_at
		FROM fact_check_updates
		WHERE fact_check_id = $1
		ORDER BY created_at DESC
	`, toUUID(factCheckID))
	if err != nil {
		return nil, fmt.Errorf("select fact check updates: %w", err)
	}
	defer rows.Close()

	var updates []domain.FactCheckUpdate

	for rows.Next() {
		var (
			u          domain.FactCheckUpdate
			id, fcID   pgtype.UUID
			oldV, newV string
			oldC, newC float32
		)

		if err := rows.Scan(&id, &fcID, &oldV, &newV, &oldC, &newC, &u.Reason, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan fact check update: %w", err)
		}

		u.ID = fromUUID(id)
		u.FactCheckID = fromUUID(fcID)
		u.OldVerdict = domain.Verdict(oldV)
		u.NewVerdict = domain.Verdict(newV)
		u.OldConfidence = float64(oldC)
		u.NewConfidence = float64(newC)

		updates = append(updates, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact check updates: %w", err)
	}

	return updates, nil
}

func scanFactCheck(row pgx.Row) (domain.FactCheck, error) {
	var (
		fc             domain.FactCheck
		id             pgtype.UUID
		verdict        string
		confidence     float32
		sourcesJSON    []byte
		submittedBy    pgtype.UUID
		verifiedBy     pgtype.UUID
		lastVerifiedAt pgtype.Timestamptz
	)

	err := row.Scan(&id, &fc.Claim, &verdict, &confidence, &fc.Category, &sourcesJSON,
		&fc.Explanation, &fc.Language, &submittedBy, &verifiedBy, &fc.AutomatedUpdateCount,
		&fc.CreatedAt, &fc.UpdatedAt, &lastVerifiedAt)
	if err != nil {
		return domain.FactCheck{}, fmt.Errorf("scan fact check: %w", err)
	}

	fc.ID = fromUUID(id)
	fc.Verdict = domain.Verdict(verdict)
	fc.ConfidenceScore = float64(confidence)
	fc.SubmittedBy = fromUUID(submittedBy)
	fc.VerifiedBy = fromUUID(verifiedBy)

	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &fc.Sources); err != nil {
			return domain.FactCheck{}, fmt.Errorf("unmarshal sources: %w", err)
		}
	}

	if lastVerifiedAt.Valid {
		t := lastVerifiedAt.Time
		fc.LastVerifiedAt = &t
	}

	return fc, nil
}

func nullableUUID(id string) pgtype.UUID {
	if id == "" {
		return pgtype.UUID{Valid: false}
	}

	return toUUID(id)
}

func nullableTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}

	return pgtype.Timestamptz{Time: *t, Valid: true}
}
