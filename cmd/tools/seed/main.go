// Command seed loads fact-check fixtures from a YAML file into the database.
// Intended for local development and demo environments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	db "github.com/appwhistler/factcheckd/internal/storage"
)

const errFmt = "%v\n"

var (
	errDSNRequired  = errors.New("POSTGRES_DSN is required (or provide -dsn)")
	errPathRequired = errors.New("fixture path is required")
	errNoFixtures   = errors.New("fixture file contains no fact checks")
)

type seedConfig struct {
	path string
	dsn  string
}

type fixtureFile struct {
	Users      []fixtureUser      `yaml:"users"`
	FactChecks []fixtureFactCheck `yaml:"fact_checks"`
}

type fixtureUser struct {
	ID          string `yaml:"id"`
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
}

type fixtureFactCheck struct {
	Claim       string          `yaml:"claim"`
	Verdict     string          `yaml:"verdict"`
	Confidence  float64         `yaml:"confidence"`
	Category    string          `yaml:"category"`
	Explanation string          `yaml:"explanation"`
	Language    string          `yaml:"language"`
	SubmittedBy string          `yaml:"submitted_by"`
	VerifiedBy  string          `yaml:"verified_by"`
	CreatedAt   string          `yaml:"created_at"`
	VerifiedAt  string          `yaml:"verified_at"`
	Sources     []fixtureSource `yaml:"sources"`
}

type fixtureSource struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

func main() {
	cfg := parseFlags()

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	if err := runSeed(cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}
}

func parseFlags() seedConfig {
	cfg := seedConfig{}

	flag.StringVar(&cfg.path, "fixtures", "docs/fixtures/factchecks.yaml", "Path to YAML fixture file")
	flag.StringVar(&cfg.dsn, "dsn", os.Getenv("POSTGRES_DSN"), "Postgres DSN")

	flag.Parse()

	return cfg
}

func validateConfig(cfg seedConfig) error {
	if cfg.dsn == "" {
		return errDSNRequired
	}

	if cfg.path == "" {
		return errPathRequired
	}

	return nil
}

func runSeed(cfg seedConfig) error {
	fixtures, err := loadFixtures(cfg.path)
	if err != nil {
		return err
	}

	ctx := context.Background()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	database, err := db.New(ctx, cfg.dsn, &logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	for i, user := range fixtures.Users {
		if err := database.UpsertUser(ctx, user.ID, user.Email, user.DisplayName, time.Now().UTC()); err != nil {
			return fmt.Errorf("user fixture %d: %w", i, err)
		}
	}

	for i, fixture := range fixtures.FactChecks {
		fc, err := toDomain(fixture)
		if err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}

		id, err := database.InsertFactCheck(ctx, fc)
		if err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}

		fmt.Printf("seeded fact check %s: %q\n", id, fc.Claim)
	}

	return nil
}

func loadFixtures(path string) (*fixtureFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures fixtureFile
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	if len(fixtures.FactChecks) == 0 {
		return nil, errNoFixtures
	}

	return &fixtures, nil
}

func toDomain(fixture fixtureFactCheck) (domain.FactCheck, error) {
	verdict, err := domain.ParseVerdict(fixture.Verdict)
	if err != nil {
		return domain.FactCheck{}, err
	}

	createdAt, err := parseDate(fixture.CreatedAt, time.Now().UTC())
	if err != nil {
		return domain.FactCheck{}, fmt.Errorf("created_at: %w", err)
	}

	fc := domain.FactCheck{
		Claim:           fixture.Claim,
		Verdict:         verdict,
		ConfidenceScore: fixture.Confidence,
		Category:        fixture.Category,
		Explanation:     fixture.Explanation,
		Language:        fixture.Language,
		SubmittedBy:     fixture.SubmittedBy,
		VerifiedBy:      fixture.VerifiedBy,
		CreatedAt:       createdAt,
	}

	if fc.Language == "" {
		fc.Language = "en"
	}

	for _, src := range fixture.Sources {
		fc.Sources = append(fc.Sources, domain.Source{Label: src.Label, URL: src.URL})
	}

	if fixture.VerifiedAt != "" {
		verifiedAt, err := parseDate(fixture.VerifiedAt, time.Time{})
		if err != nil {
			return domain.FactCheck{}, fmt.Errorf("verified_at: %w", err)
		}

		fc.LastVerifiedAt = &verifiedAt
	}

	return fc, nil
}

// parseDate accepts anything dateparse understands, including relative-free
// forms like "2024-01-15" or "Jan 15, 2024".
func parseDate(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}

	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}

	return t.UTC(), nil
}
