// Package reverify implements the automated fact-check re-verification
// cycle: it scans for stale analyst-reviewed claims, produces fresh verdicts
// through a verification provider, persists significant changes with history,
// notifies affected users, and records per-cycle audit counters.
package reverify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/core/verifier"
	"github.com/appwhistler/factcheckd/internal/platform/worker"
)

const defaultVerifyTimeout = 2 * time.Minute

// Repository is the storage surface the re-verification cycle depends on.
type Repository interface {
	SelectStaleFactChecks(ctx context.Context, cutoff time.Time, limit int) ([]domain.FactCheck, error)
	GetFactCheck(ctx context.Context, id string) (*domain.FactCheck, error)
	GetFactCheckUpdates(ctx context.Context, factCheckID string) ([]domain.FactCheckUpdate, error)
	ApplyReverification(ctx context.Context, fc domain.FactCheck, v domain.Verification, now time.Time) error
	TouchLastVerified(ctx context.Context, factCheckID string, now time.Time) error
	GetAffectedUserIDs(ctx context.Context, factCheckID string) ([]string, error)
	InsertNotification(ctx context.Context, n domain.Notification) error
	InsertCycleLog(ctx context.Context, updated, unchanged, errored int, now time.Time) error
	GetCycleStats(ctx context.Context, since time.Time) (domain.CycleStats, error)
	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}

// Engine re-verifies a single fact check against the provider.
type Engine struct {
	db       Repository
	provider verifier.Provider
	timeout  time.Duration
	logger   *zerolog.Logger
}

// NewEngine creates a re-verification engine. Each provider call runs under
// the given timeout so a hung provider cannot stall the cycle; a
// non-positive timeout falls back to two minutes.
func NewEngine(database Repository, provider verifier.Provider, timeout time.Duration, logger *zerolog.Logger) *Engine {
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}

	return &Engine{db: database, provider: provider, timeout: timeout, logger: logger}
}

// Reverify produces a fresh verdict for the fact check and persists the
// outcome. A significant change updates the record and appends a history row
// in one transaction; an insignificant one only refreshes last_verified_at.
// Provider failures propagate without any write, leaving the claim stale so
// the next cycle retries it.
func (e *Engine) Reverify(ctx context.Context, fc domain.FactCheck) (domain.ReverifyResult, error) {
	var verification domain.Verification

	err := worker.RunWithTimeout(ctx, e.timeout, func(ctx context.Context) error {
		v, err := e.provider.VerifyClaim(ctx, fc.Claim, fc.Category)
		if err != nil {
			return err
		}

		verification = v

		return nil
	})
	if err != nil {
		return domain.ReverifyResult{}, fmt.Errorf("verify claim %s: %w", fc.ID, err)
	}

	result := domain.ReverifyResult{
		ClaimID:       fc.ID,
		OldVerdict:    fc.Verdict,
		NewVerdict:    verification.Verdict,
		OldConfidence: fc.ConfidenceScore,
		NewConfidence: verification.Confidence,
	}

	now := time.Now().UTC()

	if !IsSignificantChange(fc, verification) {
		if err := e.db.TouchLastVerified(ctx, fc.ID, now); err != nil {
			return domain.ReverifyResult{}, err
		}

		return result, nil
	}

	result.VerdictChanged = true

	if err := e.db.ApplyReverification(ctx, fc, verification, now); err != nil {
		return domain.ReverifyResult{}, err
	}

	e.logger.Info().
		Str("fact_check_id", fc.ID).
		Str("old_verdict", string(fc.Verdict)).
		Str("new_verdict", string(verification.Verdict)).
		Float64("old_confidence", fc.ConfidenceScore).
		Float64("new_confidence", verification.Confidence).
		Msg("fact check verdict updated")

	return result, nil
}
