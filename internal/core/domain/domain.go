// Package domain holds the core entities shared across the re-verification
// pipeline: fact checks, verdicts, update history, notifications, and cycle logs.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Verdict is the categorical outcome of fact-checking a claim.
type Verdict string

const (
	VerdictTrue       Verdict = "TRUE"
	VerdictFalse      Verdict = "FALSE"
	VerdictMisleading Verdict = "MISLEADING"
	VerdictUnverified Verdict = "UNVERIFIED"
)

// ErrUnknownVerdict indicates a verdict string outside the known set.
var ErrUnknownVerdict = errors.New("unknown verdict")

// ParseVerdict normalizes and validates a verdict string.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToUpper(strings.TrimSpace(s)))

	switch v {
	case VerdictTrue, VerdictFalse, VerdictMisleading, VerdictUnverified:
		return v, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
}

// Source is a reference backing a verdict. Either field may be empty.
type Source struct {
	Label string `json:"label,omitempty"`
	URL   string `json:"url,omitempty"`
}

// FactCheck is a persisted fact-check record.
type FactCheck struct {
	ID                   string
	Claim                string
	Verdict              Verdict
	ConfidenceScore      float64
	Category             string
	Sources              []Source
	Explanation          string
	Language             string
	SubmittedBy          string // empty when anonymous
	VerifiedBy           string // empty until analyst review; excluded from automated re-verification
	AutomatedUpdateCount int
	CreatedAt            time.Time
	UpdatedAt            time.Time
	LastVerifiedAt       *time.Time
}

// Verification is a fresh verdict produced by a verification provider.
type Verification struct {
	Verdict     Verdict
	Confidence  float64
	Sources     []Source
	Explanation string
}

// ReverifyResult describes the outcome of re-verifying one claim.
type ReverifyResult struct {
	ClaimID        string
	VerdictChanged bool
	OldVerdict     Verdict
	NewVerdict     Verdict
	OldConfidence  float64
	NewConfidence  float64
}

// UpdateReasonAutomated tags history rows written by the re-verification cycle.
const UpdateReasonAutomated = "automated_reverification"

// FactCheckUpdate is an append-only history row capturing a significant change.
type FactCheckUpdate struct {
	ID            string
	FactCheckID   string
	OldVerdict    Verdict
	NewVerdict    Verdict
	OldConfidence float64
	NewConfidence float64
	Reason        string
	CreatedAt     time.Time
}

// NotificationTypeFactCheckUpdated tags notifications from the re-verification cycle.
const NotificationTypeFactCheckUpdated = "fact_check_updated"

// Notification is a per-user message about a change to a fact check.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	Metadata  NotificationMetadata
	CreatedAt time.Time
}

// NotificationMetadata is the structured payload attached to a notification.
type NotificationMetadata struct {
	FactCheckID string  `json:"fact_check_id"`
	OldVerdict  Verdict `json:"old_verdict"`
	NewVerdict  Verdict `json:"new_verdict"`
	Automated   bool    `json:"automated"`
}

// CycleLog records the counters of one completed re-verification cycle.
type CycleLog struct {
	ID             string
	UpdatedCount   int
	UnchangedCount int
	ErrorCount     int
	CreatedAt      time.Time
}

// CycleStats aggregates cycle logs over a reporting window.
type CycleStats struct {
	TotalCycles    int
	TotalUpdated   int
	TotalUnchanged int
	TotalErrors    int
	LastRun        *time.Time
}
