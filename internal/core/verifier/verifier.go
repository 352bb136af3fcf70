// Package verifier produces fresh verdicts for claims. The OpenAI-backed
// provider is the production implementation; a mock is available for tests
// and local development.
package verifier

import (
	"context"

	"github.com/appwhistler/factcheckd/internal/core/domain"
)

// Provider verifies a claim and returns a fresh verdict with confidence,
// sources, and an explanation. Implementations may fail with any error;
// callers treat a failure as "this claim could not be re-verified".
type Provider interface {
	VerifyClaim(ctx context.Context, claim, category string) (domain.Verification, error)
}
