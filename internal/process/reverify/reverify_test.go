package reverify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/core/verifier"
	"github.com/appwhistler/factcheckd/internal/platform/config"
)

type fakeRepo struct {
	mu sync.Mutex

	stale         []domain.FactCheck
	staleErr      error
	applied       []domain.FactCheck
	touched       []string
	notifications []domain.Notification
	notifyErr     error
	userIDs       map[string][]string
	cycleLogs     [][3]int
	stats         domain.CycleStats
	updates       map[string][]domain.FactCheckUpdate
	lockHeld      bool
	lockAcquires  int
	lockReleases  int
}

func (f *fakeRepo) SelectStaleFactChecks(_ context.Context, _ time.Time, limit int) ([]domain.FactCheck, error) {
	if f.staleErr != nil {
		return nil, f.staleErr
	}

	if len(f.stale) > limit {
		return f.stale[:limit], nil
	}

	return f.stale, nil
}

func (f *fakeRepo) GetFactCheck(_ context.Context, id string) (*domain.FactCheck, error) {
	for _, fc := range f.stale {
		if fc.ID == id {
			return &fc, nil
		}
	}

	return nil, errors.New("fact check not found")
}

func (f *fakeRepo) GetFactCheckUpdates(_ context.Context, factCheckID string) ([]domain.FactCheckUpdate, error) {
	return f.updates[factCheckID], nil
}

func (f *fakeRepo) ApplyReverification(_ context.Context, fc domain.FactCheck, v domain.Verification, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fc.Verdict = v.Verdict
	fc.ConfidenceScore = v.Confidence
	f.applied = append(f.applied, fc)

	return nil
}

func (f *fakeRepo) TouchLastVerified(_ context.Context, factCheckID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.touched = append(f.touched, factCheckID)

	return nil
}

func (f *fakeRepo) GetAffectedUserIDs(_ context.Context, factCheckID string) ([]string, error) {
	return f.userIDs[factCheckID], nil
}

func (f *fakeRepo) InsertNotification(_ context.Context, n domain.Notification) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.notifications = append(f.notifications, n)

	return nil
}

func (f *fakeRepo) InsertCycleLog(_ context.Context, updated, unchanged, errored int, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cycleLogs = append(f.cycleLogs, [3]int{updated, unchanged, errored})

	return nil
}

func (f *fakeRepo) GetCycleStats(_ context.Context, _ time.Time) (domain.CycleStats, error) {
	return f.stats, nil
}

func (f *fakeRepo) TryAcquireAdvisoryLock(_ context.Context, _ int64) (bool, error) {
	if f.lockHeld {
		return false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.lockAcquires++

	return true, nil
}

func (f *fakeRepo) ReleaseAdvisoryLock(_ context.Context, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lockReleases++

	return nil
}

type fakeProvider struct {
	results map[string]domain.Verification
	errs    map[string]error
	calls   int
}

func (p *fakeProvider) VerifyClaim(_ context.Context, claim, _ string) (domain.Verification, error) {
	p.calls++

	if err, ok := p.errs[claim]; ok {
		return domain.Verification{}, err
	}

	if v, ok := p.results[claim]; ok {
		return v, nil
	}

	return domain.Verification{Verdict: domain.VerdictUnverified, Confidence: 0.5}, nil
}

func testChecker(repo *fakeRepo, provider verifier.Provider) *Checker {
	logger := zerolog.Nop()
	cfg := &config.Config{
		StaleThresholdDays: 90,
		BatchSize:          50,
		ScheduleTimes:      []string{"02:00"},
		ScheduleTimezone:   "UTC",
	}
	engine := NewEngine(repo, provider, 0, &logger)

	return NewChecker(cfg, repo, engine, &logger)
}

func factCheck(id, claim string, verdict domain.Verdict, confidence float64) domain.FactCheck {
	return domain.FactCheck{
		ID:              id,
		Claim:           claim,
		Verdict:         verdict,
		ConfidenceScore: confidence,
		VerifiedBy:      "analyst-1",
	}
}

func TestIsSignificantChange(t *testing.T) {
	tests := []struct {
		name          string
		oldVerdict    domain.Verdict
		oldConfidence float64
		newVerdict    domain.Verdict
		newConfidence float64
		want          bool
	}{
		{name: "verdict flip", oldVerdict: domain.VerdictTrue, oldConfidence: 0.9, newVerdict: domain.VerdictFalse, newConfidence: 0.9, want: true},
		{name: "drift above threshold", oldVerdict: domain.VerdictTrue, oldConfidence: 0.5, newVerdict: domain.VerdictTrue, newConfidence: 0.71, want: true},
		{name: "drift exactly threshold", oldVerdict: domain.VerdictTrue, oldConfidence: 0.5, newVerdict: domain.VerdictTrue, newConfidence: 0.7, want: false},
		{name: "drift below threshold", oldVerdict: domain.VerdictTrue, oldConfidence: 0.5, newVerdict: domain.VerdictTrue, newConfidence: 0.6, want: false},
		{name: "negative drift above threshold", oldVerdict: domain.VerdictFalse, oldConfidence: 0.9, newVerdict: domain.VerdictFalse, newConfidence: 0.6, want: true},
		{name: "identical", oldVerdict: domain.VerdictMisleading, oldConfidence: 0.8, newVerdict: domain.VerdictMisleading, newConfidence: 0.8, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := factCheck("fc1", "claim", tt.oldVerdict, tt.oldConfidence)
			v := domain.Verification{Verdict: tt.newVerdict, Confidence: tt.newConfidence}

			assert.Equal(t, tt.want, IsSignificantChange(fc, v))
		})
	}
}

func TestRunCycle_VerdictFlipUpdatesAndNotifies(t *testing.T) {
	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "the earth is flat", domain.VerdictTrue, 0.8),
		},
		userIDs: map[string][]string{
			"fc1": {"user-1", "user-2"},
		},
	}
	provider := &fakeProvider{
		results: map[string]domain.Verification{
			"the earth is flat": {Verdict: domain.VerdictFalse, Confidence: 0.95},
		},
	}

	result, err := testChecker(repo, provider).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Unchanged)
	assert.Zero(t, result.Errors)
	assert.Equal(t, 2, result.Notifications)

	require.Len(t, repo.applied, 1)
	assert.Equal(t, domain.VerdictFalse, repo.applied[0].Verdict)

	require.Len(t, repo.notifications, 2)
	assert.Equal(t, domain.NotificationTypeFactCheckUpdated, repo.notifications[0].Type)
	assert.True(t, repo.notifications[0].Metadata.Automated)
	assert.Equal(t, domain.VerdictTrue, repo.notifications[0].Metadata.OldVerdict)

	require.Len(t, repo.cycleLogs, 1)
	assert.Equal(t, [3]int{1, 0, 0}, repo.cycleLogs[0])
}

func TestRunCycle_InsignificantDriftOnlyTouches(t *testing.T) {
	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "water boils at 100C at sea level", domain.VerdictTrue, 0.9),
		},
	}
	provider := &fakeProvider{
		results: map[string]domain.Verification{
			"water boils at 100C at sea level": {Verdict: domain.VerdictTrue, Confidence: 0.85},
		},
	}

	result, err := testChecker(repo, provider).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Unchanged)
	assert.Zero(t, result.Updated)
	assert.Empty(t, repo.applied)
	assert.Equal(t, []string{"fc1"}, repo.touched)
	assert.Empty(t, repo.notifications)
}

func TestRunCycle_ProviderErrorIsIsolated(t *testing.T) {
	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "claim one", domain.VerdictTrue, 0.8),
			factCheck("fc2", "claim two", domain.VerdictFalse, 0.7),
			factCheck("fc3", "claim three", domain.VerdictTrue, 0.6),
		},
	}
	provider := &fakeProvider{
		errs: map[string]error{
			"claim two": errors.New("provider unavailable"),
		},
		results: map[string]domain.Verification{
			"claim one":   {Verdict: domain.VerdictTrue, Confidence: 0.82},
			"claim three": {Verdict: domain.VerdictFalse, Confidence: 0.9},
		},
	}

	result, err := testChecker(repo, provider).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Unchanged)
	assert.Equal(t, 1, result.Errors)

	// The failed claim is neither touched nor updated, so it stays stale.
	assert.NotContains(t, repo.touched, "fc2")

	require.Len(t, repo.cycleLogs, 1)
	assert.Equal(t, [3]int{1, 1, 1}, repo.cycleLogs[0])
}

func TestRunCycle_EmptyCycleStillLogged(t *testing.T) {
	repo := &fakeRepo{}
	provider := &fakeProvider{}

	result, err := testChecker(repo, provider).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Scanned)
	require.Len(t, repo.cycleLogs, 1)
	assert.Equal(t, [3]int{0, 0, 0}, repo.cycleLogs[0])
	assert.Zero(t, provider.calls)
}

func TestRunCycle_LockHeldByAnotherInstance(t *testing.T) {
	repo := &fakeRepo{
		lockHeld: true,
		stale: []domain.FactCheck{
			factCheck("fc1", "claim", domain.VerdictTrue, 0.8),
		},
	}
	provider := &fakeProvider{}

	result, err := testChecker(repo, provider).RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Zero(t, provider.calls)
	assert.Empty(t, repo.cycleLogs)

	// An unacquired lock must not be released.
	assert.Zero(t, repo.lockReleases)
}

func TestRunCycle_ReleasesLockAfterEveryCycle(t *testing.T) {
	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "claim", domain.VerdictTrue, 0.8),
		},
	}
	provider := &fakeProvider{
		results: map[string]domain.Verification{
			"claim": {Verdict: domain.VerdictTrue, Confidence: 0.8},
		},
	}
	checker := testChecker(repo, provider)

	_, err := checker.RunCycle(context.Background())
	require.NoError(t, err)

	// The next cycle must be able to re-acquire the lock.
	_, err = checker.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, repo.lockAcquires)
	assert.Equal(t, 2, repo.lockReleases)
}

func TestRunCycle_ReleasesLockOnFailure(t *testing.T) {
	repo := &fakeRepo{staleErr: errors.New("connection refused")}
	checker := testChecker(repo, &fakeProvider{})

	_, err := checker.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1, repo.lockAcquires)
	assert.Equal(t, 1, repo.lockReleases)
}

func TestRunCycle_RejectedWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "slow claim", domain.VerdictTrue, 0.8),
		},
	}
	provider := &slowProvider{started: started, release: release}
	checker := testChecker(repo, provider)

	done := make(chan error, 1)

	go func() {
		_, err := checker.RunCycle(context.Background())
		done <- err
	}()

	<-started

	_, err := checker.RunManual(context.Background())
	assert.ErrorIs(t, err, ErrCycleRunning)

	close(release)
	require.NoError(t, <-done)
}

type slowProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *slowProvider) VerifyClaim(_ context.Context, _, _ string) (domain.Verification, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release

	return domain.Verification{Verdict: domain.VerdictTrue, Confidence: 0.8}, nil
}

func TestRunCycle_SelectionFailureFailsCycle(t *testing.T) {
	repo := &fakeRepo{staleErr: errors.New("connection refused")}

	_, err := testChecker(repo, &fakeProvider{}).RunCycle(context.Background())

	require.Error(t, err)
	assert.Empty(t, repo.cycleLogs)
}

func TestNotifier_FailedWriteDoesNotAbortFanout(t *testing.T) {
	repo := &fakeRepo{
		notifyErr: errors.New("disk full"),
		userIDs:   map[string][]string{"fc1": {"user-1", "user-2"}},
	}

	logger := zerolog.Nop()
	notifier := NewNotifier(repo, &logger)

	written := notifier.NotifyVerdictChange(context.Background(), factCheck("fc1", "claim", domain.VerdictTrue, 0.8),
		domain.ReverifyResult{ClaimID: "fc1", VerdictChanged: true, OldVerdict: domain.VerdictTrue, NewVerdict: domain.VerdictFalse})

	assert.Zero(t, written)
}

func TestNotifier_TruncatesLongClaims(t *testing.T) {
	longClaim := strings.Repeat("a", 200)
	repo := &fakeRepo{userIDs: map[string][]string{"fc1": {"user-1"}}}

	logger := zerolog.Nop()
	notifier := NewNotifier(repo, &logger)

	notifier.NotifyVerdictChange(context.Background(), factCheck("fc1", longClaim, domain.VerdictTrue, 0.8),
		domain.ReverifyResult{ClaimID: "fc1", OldVerdict: domain.VerdictTrue, NewVerdict: domain.VerdictFalse})

	require.Len(t, repo.notifications, 1)
	assert.NotContains(t, repo.notifications[0].Message, longClaim)
	assert.Contains(t, repo.notifications[0].Message, strings.Repeat("a", 50)+"…")
}

type deadlineProvider struct {
	deadlineSet bool
	remaining   time.Duration
}

func (p *deadlineProvider) VerifyClaim(ctx context.Context, _, _ string) (domain.Verification, error) {
	if d, ok := ctx.Deadline(); ok {
		p.deadlineSet = true
		p.remaining = time.Until(d)
	}

	return domain.Verification{Verdict: domain.VerdictTrue, Confidence: 0.8}, nil
}

func TestReverify_ProviderCallCarriesDeadline(t *testing.T) {
	logger := zerolog.Nop()
	provider := &deadlineProvider{}
	engine := NewEngine(&fakeRepo{}, provider, 30*time.Second, &logger)

	_, err := engine.Reverify(context.Background(), factCheck("fc1", "claim", domain.VerdictTrue, 0.8))
	require.NoError(t, err)

	assert.True(t, provider.deadlineSet)
	assert.LessOrEqual(t, provider.remaining, 30*time.Second)
	assert.Greater(t, provider.remaining, 25*time.Second)
}

type blockingProvider struct{}

func (blockingProvider) VerifyClaim(ctx context.Context, _, _ string) (domain.Verification, error) {
	<-ctx.Done()

	return domain.Verification{}, ctx.Err()
}

func TestReverify_HungProviderTimesOut(t *testing.T) {
	logger := zerolog.Nop()
	repo := &fakeRepo{}
	engine := NewEngine(repo, blockingProvider{}, 10*time.Millisecond, &logger)

	_, err := engine.Reverify(context.Background(), factCheck("fc1", "claim", domain.VerdictTrue, 0.8))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// No write for the timed-out claim, so it stays stale for the next cycle.
	assert.Empty(t, repo.applied)
	assert.Empty(t, repo.touched)
}

func TestChecker_Inspect(t *testing.T) {
	repo := &fakeRepo{
		stale: []domain.FactCheck{
			factCheck("fc1", "the claim", domain.VerdictFalse, 0.95),
		},
		updates: map[string][]domain.FactCheckUpdate{
			"fc1": {
				{
					FactCheckID:   "fc1",
					OldVerdict:    domain.VerdictTrue,
					NewVerdict:    domain.VerdictFalse,
					OldConfidence: 0.8,
					NewConfidence: 0.95,
					Reason:        domain.UpdateReasonAutomated,
				},
			},
		},
	}

	fc, updates, err := testChecker(repo, &fakeProvider{}).Inspect(context.Background(), "fc1")
	require.NoError(t, err)

	assert.Equal(t, "the claim", fc.Claim)
	require.Len(t, updates, 1)
	assert.Equal(t, domain.UpdateReasonAutomated, updates[0].Reason)
}

func TestChecker_Inspect_NotFound(t *testing.T) {
	_, _, err := testChecker(&fakeRepo{}, &fakeProvider{}).Inspect(context.Background(), "missing")

	require.Error(t, err)
}

func TestChecker_Stats(t *testing.T) {
	lastRun := time.Date(2026, 8, 30, 2, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		stats: domain.CycleStats{TotalCycles: 30, TotalUpdated: 12, TotalUnchanged: 400, TotalErrors: 3, LastRun: &lastRun},
	}

	stats, err := testChecker(repo, &fakeProvider{}).Stats(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 30, stats.TotalCycles)
	assert.Equal(t, 12, stats.TotalUpdated)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, lastRun, *stats.LastRun)
}

func TestRunCycle_BatchSizeLimitsSelection(t *testing.T) {
	var stale []domain.FactCheck
	for i := 0; i < 5; i++ {
		stale = append(stale, factCheck("fc"+string(rune('1'+i)), "claim", domain.VerdictTrue, 0.8))
	}

	repo := &fakeRepo{stale: stale}
	provider := &fakeProvider{
		results: map[string]domain.Verification{
			"claim": {Verdict: domain.VerdictTrue, Confidence: 0.8},
		},
	}

	checker := testChecker(repo, provider)
	checker.cfg.BatchSize = 2

	result, err := checker.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Scanned)
	assert.Equal(t, 2, provider.calls)
}
