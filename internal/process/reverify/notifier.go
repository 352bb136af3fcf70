package reverify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/platform/observability"
)

const claimExcerptLength = 50

// Notifier writes verdict-change notifications for affected users: everyone
// who voted on the fact check plus its original submitter. Delivery is
// best-effort; a failed write is counted and logged but never fails the cycle.
type Notifier struct {
	db     Repository
	logger *zerolog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(database Repository, logger *zerolog.Logger) *Notifier {
	return &Notifier{db: database, logger: logger}
}

// NotifyVerdictChange fans a verdict-change notification out to all affected
// users. Returns the number of notifications written.
func (n *Notifier) NotifyVerdictChange(ctx context.Context, fc domain.FactCheck, result domain.ReverifyResult) int {
	userIDs, err := n.db.GetAffectedUserIDs(ctx, fc.ID)
	if err != nil {
		n.logger.Warn().Err(err).Str("fact_check_id", fc.ID).Msg("failed to resolve affected users")

		return 0
	}

	now := time.Now().UTC()
	written := 0

	for _, userID := range userIDs {
		notification := domain.Notification{
			UserID:  userID,
			Type:    domain.NotificationTypeFactCheckUpdated,
			Title:   "Fact check updated",
			Message: verdictChangeMessage(fc.Claim, result),
			Metadata: domain.NotificationMetadata{
				FactCheckID: fc.ID,
				OldVerdict:  result.OldVerdict,
				NewVerdict:  result.NewVerdict,
				Automated:   true,
			},
			CreatedAt: now,
		}

		if err := n.db.InsertNotification(ctx, notification); err != nil {
			observability.NotificationFailures.Inc()
			n.logger.Warn().Err(err).
				Str("fact_check_id", fc.ID).
				Str("user_id", userID).
				Msg("failed to write notification")

			continue
		}

		observability.NotificationsCreated.Inc()
		written++
	}

	return written
}

func verdictChangeMessage(claim string, result domain.ReverifyResult) string {
	return fmt.Sprintf("The verdict for %q changed from %s to %s after automated re-verification.",
		excerpt(claim, claimExcerptLength), result.OldVerdict, result.NewVerdict)
}

func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "…"
}
