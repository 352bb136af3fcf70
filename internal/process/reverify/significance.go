package reverify

import "github.com/appwhistler/factcheckd/internal/core/domain"

// confidenceDriftThreshold is the confidence delta above which an unchanged
// verdict still counts as a significant change. The comparison is strict: a
// drift of exactly the threshold is not significant.
const confidenceDriftThreshold = 0.2

// IsSignificantChange reports whether a fresh verification differs enough
// from the stored fact check to warrant persisting: either the verdict
// flipped, or the confidence drifted by more than the threshold.
func IsSignificantChange(fc domain.FactCheck, v domain.Verification) bool {
	if fc.Verdict != v.Verdict {
		return true
	}

	drift := v.Confidence - fc.ConfidenceScore
	if drift < 0 {
		drift = -drift
	}

	return drift > confidenceDriftThreshold
}
