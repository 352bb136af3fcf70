package config

import (
	"os"
	"testing"
	"time"
)

const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testEnvLLMAPIKey   = "LLM_API_KEY"
	testPostgresDSN    = "postgres://localhost/test"
	testLLMAPIKey      = "sk-test"
	testErrLoad        = "Load() error = %v"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvLLMAPIKey, testLLMAPIKey)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)
	os.Unsetenv(testEnvLLMAPIKey)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.StaleThresholdDays != 90 {
		t.Errorf("StaleThresholdDays = %d, want 90", cfg.StaleThresholdDays)
	}

	if cfg.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.BatchSize)
	}

	if len(cfg.ScheduleTimes) != 1 || cfg.ScheduleTimes[0] != "02:00" {
		t.Errorf("ScheduleTimes = %v, want [02:00]", cfg.ScheduleTimes)
	}

	if cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLMModel = %q, want gpt-4o-mini", cfg.LLMModel)
	}
}

func TestLoad_ScheduleList(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("FACT_CHECK_SCHEDULE", "02:00,14:30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if len(cfg.ScheduleTimes) != 2 || cfg.ScheduleTimes[1] != "14:30" {
		t.Errorf("ScheduleTimes = %v, want [02:00 14:30]", cfg.ScheduleTimes)
	}
}

func TestTickInterval_Invalid(t *testing.T) {
	cfg := &Config{SchedulerTick: "bogus"}

	if got := cfg.TickInterval(); got != time.Minute {
		t.Errorf("TickInterval() = %v, want 1m fallback", got)
	}
}

func TestStaleCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cfg := &Config{StaleThresholdDays: 90}

	want := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	if got := cfg.StaleCutoff(now); !got.Equal(want) {
		t.Errorf("StaleCutoff() = %v, want %v", got, want)
	}

	// Zero threshold falls back to the 90-day default.
	cfg = &Config{}
	if got := cfg.StaleCutoff(now); !got.Equal(want) {
		t.Errorf("StaleCutoff() with zero threshold = %v, want %v", got, want)
	}
}
