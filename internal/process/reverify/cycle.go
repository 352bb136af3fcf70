package reverify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/platform/config"
	"github.com/appwhistler/factcheckd/internal/platform/observability"
	"github.com/appwhistler/factcheckd/internal/platform/schedule"
	"github.com/appwhistler/factcheckd/internal/platform/worker"
)

// cycleLockID keys the Postgres advisory lock that keeps cycles exclusive
// across service instances.
const cycleLockID int64 = 0x66637265 // "fcre"

// ErrCycleRunning indicates a cycle is already in progress on this instance.
var ErrCycleRunning = errors.New("re-verification cycle already running")

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	Scanned       int
	Updated       int
	Unchanged     int
	Errors        int
	Notifications int
	Skipped       bool // another instance held the cycle lock
}

// Checker drives scheduled and manual re-verification cycles. Cycles are
// serialized within an instance by a mutex and across instances by a
// Postgres advisory lock.
type Checker struct {
	cfg      *config.Config
	db       Repository
	engine   *Engine
	notifier *Notifier
	logger   *zerolog.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewChecker creates a cycle checker.
func NewChecker(cfg *config.Config, database Repository, engine *Engine, logger *zerolog.Logger) *Checker {
	return &Checker{
		cfg:      cfg,
		db:       database,
		engine:   engine,
		notifier: NewNotifier(database, logger),
		logger:   logger,
	}
}

// Run drives the scheduler loop until the context is canceled. Every tick it
// checks the configured daily schedule and starts a cycle when one is due.
func (c *Checker) Run(ctx context.Context) error {
	sched := schedule.Schedule{
		Timezone: c.cfg.ScheduleTimezone,
		Times:    c.cfg.ScheduleTimes,
	}

	if err := sched.Validate(); err != nil {
		return fmt.Errorf("invalid re-verification schedule: %w", err)
	}

	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:     "reverify-scheduler",
		Interval: c.cfg.TickInterval(),
		OnStart: func(context.Context) {
			c.logger.Info().
				Strs("times", c.cfg.ScheduleTimes).
				Str("timezone", c.cfg.ScheduleTimezone).
				Msg("re-verification scheduler started")

			// Treat startup as the last run so a scheduled time that passed
			// while the service was down does not fire immediately.
			c.mu.Lock()
			c.lastRun = time.Now()
			c.mu.Unlock()
		},
		OnTick: func(ctx context.Context) {
			c.mu.Lock()
			lastRun := c.lastRun
			c.mu.Unlock()

			due, err := sched.Due(time.Now(), lastRun)
			if err != nil {
				c.logger.Error().Err(err).Msg("schedule evaluation failed")

				return
			}

			if !due {
				return
			}

			if _, err := c.RunCycle(ctx); err != nil {
				c.logger.Error().Err(err).Msg("scheduled re-verification cycle failed")
			}
		},
		OnStop: func() {
			c.logger.Info().Msg("re-verification scheduler stopped")
		},
	})
}

// RunManual triggers an on-demand cycle. It fails fast with ErrCycleRunning
// when a cycle is already in progress instead of queuing behind it.
func (c *Checker) RunManual(ctx context.Context) (CycleResult, error) {
	return c.RunCycle(ctx)
}

// RunCycle executes one full re-verification cycle: select stale claims,
// re-verify each in creation order, notify affected users, and append the
// audit log row. Per-claim failures are counted and skipped; the cycle only
// fails as a whole on selection or audit-log errors.
func (c *Checker) RunCycle(ctx context.Context) (CycleResult, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()

		return CycleResult{}, ErrCycleRunning
	}

	c.running = true
	c.lastRun = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	acquired, err := c.db.TryAcquireAdvisoryLock(ctx, cycleLockID)
	if err != nil {
		return CycleResult{}, fmt.Errorf("acquire cycle lock: %w", err)
	}

	if !acquired {
		c.logger.Info().Msg("cycle lock held by another instance, skipping")

		return CycleResult{Skipped: true}, nil
	}

	defer func() {
		if err := c.db.ReleaseAdvisoryLock(ctx, cycleLockID); err != nil {
			c.logger.Warn().Err(err).Msg("failed to release cycle lock")
		}
	}()

	start := time.Now()

	result, err := c.runLocked(ctx)

	observability.CycleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ReverifyCycles.WithLabelValues(observability.CycleStatusFailed).Inc()

		return result, err
	}

	status := observability.CycleStatusCompleted
	if result.Scanned == 0 {
		status = observability.CycleStatusEmpty
	}

	observability.ReverifyCycles.WithLabelValues(status).Inc()

	c.logger.Info().
		Int("scanned", result.Scanned).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Int("errors", result.Errors).
		Int("notifications", result.Notifications).
		Dur("duration", time.Since(start)).
		Msg("re-verification cycle completed")

	return result, nil
}

func (c *Checker) runLocked(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	now := time.Now().UTC()
	cutoff := c.cfg.StaleCutoff(now)

	stale, err := c.db.SelectStaleFactChecks(ctx, cutoff, c.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("select stale fact checks: %w", err)
	}

	result.Scanned = len(stale)
	observability.StaleClaimsFound.Set(float64(len(stale)))

	type changed struct {
		fc  domain.FactCheck
		res domain.ReverifyResult
	}

	var changes []changed

	for _, fc := range stale {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("cycle canceled: %w", err)
		}

		res, err := c.engine.Reverify(ctx, fc)
		if err != nil {
			result.Errors++
			observability.ClaimsReverified.WithLabelValues(observability.OutcomeError).Inc()
			c.logger.Warn().Err(err).Str("fact_check_id", fc.ID).Msg("claim re-verification failed")

			continue
		}

		if res.VerdictChanged {
			result.Updated++
			observability.ClaimsReverified.WithLabelValues(observability.OutcomeUpdated).Inc()
			changes = append(changes, changed{fc: fc, res: res})
		} else {
			result.Unchanged++
			observability.ClaimsReverified.WithLabelValues(observability.OutcomeUnchanged).Inc()
		}
	}

	// Notifications go out after the claim loop so a slow fan-out cannot
	// starve re-verification of later claims.
	for _, ch := range changes {
		result.Notifications += c.notifier.NotifyVerdictChange(ctx, ch.fc, ch.res)
	}

	// Every cycle is logged, including empty ones: a scan that found nothing
	// is still evidence the scheduler ran.
	if err := c.db.InsertCycleLog(ctx, result.Updated, result.Unchanged, result.Errors, time.Now().UTC()); err != nil {
		return result, fmt.Errorf("insert cycle log: %w", err)
	}

	return result, nil
}

// Inspect loads a fact check and its automated update history, newest first.
func (c *Checker) Inspect(ctx context.Context, factCheckID string) (*domain.FactCheck, []domain.FactCheckUpdate, error) {
	fc, err := c.db.GetFactCheck(ctx, factCheckID)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect fact check: %w", err)
	}

	updates, err := c.db.GetFactCheckUpdates(ctx, factCheckID)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect fact check updates: %w", err)
	}

	return fc, updates, nil
}

// Stats aggregates cycle logs over the trailing reporting window.
func (c *Checker) Stats(ctx context.Context, window time.Duration) (domain.CycleStats, error) {
	stats, err := c.db.GetCycleStats(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return domain.CycleStats{}, fmt.Errorf("cycle stats: %w", err)
	}

	return stats, nil
}
