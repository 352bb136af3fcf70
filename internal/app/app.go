// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Scheduler mode: runs the daily re-verification scheduler until stopped
//   - Once mode: runs one re-verification cycle and exits
//   - Stats mode: prints aggregated cycle statistics
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/language"
	"github.com/appwhistler/factcheckd/internal/core/verifier"
	"github.com/appwhistler/factcheckd/internal/platform/config"
	"github.com/appwhistler/factcheckd/internal/platform/observability"
	"github.com/appwhistler/factcheckd/internal/process/reverify"
	db "github.com/appwhistler/factcheckd/internal/storage"
)

const (
	llmAPIKeyMock      = "mock"
	statsDefaultWindow = 30 * 24 * time.Hour
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
	checker  *reverify.Checker
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	provider := newProvider(cfg, logger)
	engine := reverify.NewEngine(database, provider, cfg.VerifyTimeout, logger)
	checker := reverify.NewChecker(cfg, database, engine, logger)

	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
		checker:  checker,
	}
}

// newProvider builds the verification provider chain. The literal key "mock"
// selects the deterministic in-memory provider for local runs and tests.
func newProvider(cfg *config.Config, logger *zerolog.Logger) verifier.Provider {
	var provider verifier.Provider

	if cfg.LLMAPIKey == llmAPIKeyMock {
		logger.Info().Msg("using mock verification provider")

		provider = verifier.NewMock()
	} else {
		provider = verifier.NewOpenAI(verifier.Config{
			APIKey:         cfg.LLMAPIKey,
			Model:          cfg.LLMModel,
			RateLimitRPS:   cfg.RateLimitRPS,
			MaxClaimLength: cfg.MaxClaimLength,
		}, logger)
	}

	if cfg.TranslateClaims {
		languageService := language.NewService(language.Config{
			APIKey:           cfg.GoogleTranslateAPIKey,
			DetectTimeout:    cfg.DetectTimeout,
			TranslateTimeout: cfg.TranslateTimeout,
		}, logger)

		provider = verifier.NewTranslating(provider, languageService, logger)
	}

	return provider
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	server := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("health server: %w", err)
	}

	return nil
}

// RunScheduler runs the re-verification scheduler until the context is canceled.
func (a *App) RunScheduler(ctx context.Context) error {
	if err := a.checker.Run(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	return nil
}

// RunOnce triggers a single re-verification cycle.
func (a *App) RunOnce(ctx context.Context) error {
	result, err := a.checker.RunManual(ctx)
	if err != nil {
		return fmt.Errorf("manual cycle: %w", err)
	}

	if result.Skipped {
		a.logger.Warn().Msg("cycle skipped, another instance is running one")

		return nil
	}

	a.logger.Info().
		Int("scanned", result.Scanned).
		Int("updated", result.Updated).
		Int("unchanged", result.Unchanged).
		Int("errors", result.Errors).
		Int("notifications", result.Notifications).
		Msg("manual re-verification cycle finished")

	return nil
}

// Inspect logs a fact check and its automated update history.
func (a *App) Inspect(ctx context.Context, factCheckID string) error {
	fc, updates, err := a.checker.Inspect(ctx, factCheckID)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	a.logger.Info().
		Str("fact_check_id", fc.ID).
		Str("claim", fc.Claim).
		Str("verdict", string(fc.Verdict)).
		Float64("confidence", fc.ConfidenceScore).
		Int("automated_updates", fc.AutomatedUpdateCount).
		Msg("fact check")

	for _, u := range updates {
		a.logger.Info().
			Str("old_verdict", string(u.OldVerdict)).
			Str("new_verdict", string(u.NewVerdict)).
			Float64("old_confidence", u.OldConfidence).
			Float64("new_confidence", u.NewConfidence).
			Str("reason", u.Reason).
			Time("at", u.CreatedAt).
			Msg("update")
	}

	return nil
}

// Stats logs cycle statistics over the trailing 30 days.
func (a *App) Stats(ctx context.Context) error {
	stats, err := a.checker.Stats(ctx, statsDefaultWindow)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	event := a.logger.Info().
		Int("total_cycles", stats.TotalCycles).
		Int("total_updated", stats.TotalUpdated).
		Int("total_unchanged", stats.TotalUnchanged).
		Int("total_errors", stats.TotalErrors)

	if stats.LastRun != nil {
		event = event.Time("last_run", *stats.LastRun)
	}

	event.Msg("re-verification statistics, trailing 30 days")

	return nil
}
