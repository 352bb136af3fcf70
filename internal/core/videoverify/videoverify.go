// Package videoverify analyzes video evidence attached to claims. It
// transcribes audio through AssemblyAI and scores the footage for deepfake
// likelihood. Analysis is best-effort: failures produce a manual-review
// recommendation instead of an error.
package videoverify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/platform/worker"
)

const (
	assemblyAIBaseURL = "https://api.assemblyai.com/v2"
	deepwareBaseURL   = "https://api.deepware.ai/v1"

	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 5 * time.Minute

	deepfakeThreshold = 0.7

	transcriptStatusCompleted = "completed"
	transcriptStatusError     = "error"

	// Recommendation values surfaced to reviewers.
	RecommendationVerified     = "transcript_verified"
	RecommendationLikelyFake   = "likely_deepfake"
	RecommendationManualReview = "manual_review"
)

// ErrTranscriptionFailed indicates AssemblyAI rejected or failed the job.
var ErrTranscriptionFailed = errors.New("transcription failed")

var errUnexpectedStatus = errors.New("video api unexpected status")

// Report is the outcome of analyzing a video.
type Report struct {
	Transcript       string    `json:"transcript,omitempty"`
	DeepfakeScore    float64   `json:"deepfake_score"`
	IsLikelyDeepfake bool      `json:"is_likely_deepfake"`
	Recommendation   string    `json:"recommendation"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
}

// Config configures the analyzer.
type Config struct {
	AssemblyAIKey string
	DeepwareKey   string
	PollInterval  time.Duration
	PollTimeout   time.Duration
}

// Analyzer submits videos for transcription and deepfake scoring.
type Analyzer struct {
	cfg         Config
	baseURL     string
	deepwareURL string
	client      *http.Client
	logger      *zerolog.Logger
}

// NewAnalyzer creates a video analyzer. Missing API keys degrade analysis to
// a manual-review recommendation rather than failing.
func NewAnalyzer(cfg Config, logger *zerolog.Logger) *Analyzer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}

	return &Analyzer{
		cfg:         cfg,
		baseURL:     assemblyAIBaseURL,
		deepwareURL: deepwareBaseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// Analyze transcribes the video at videoURL and scores it for deepfake
// likelihood. It never returns an error for backend failures; the report's
// recommendation is set to manual review instead.
func (a *Analyzer) Analyze(ctx context.Context, videoURL string) Report {
	report := Report{AnalyzedAt: time.Now().UTC()}

	if a.cfg.AssemblyAIKey == "" {
		a.logger.Warn().Msg("ASSEMBLYAI_API_KEY not set, skipping video transcription")

		report.Recommendation = RecommendationManualReview

		return report
	}

	transcript, err := a.transcribe(ctx, videoURL)
	if err != nil {
		a.logger.Warn().Err(err).Str("video_url", videoURL).Msg("video transcription failed")

		report.Recommendation = RecommendationManualReview

		return report
	}

	report.Transcript = transcript

	score, err := a.deepfakeScore(ctx, videoURL)
	if err != nil {
		a.logger.Warn().Err(err).Str("video_url", videoURL).Msg("deepfake scoring failed")

		report.Recommendation = RecommendationManualReview

		return report
	}

	report.DeepfakeScore = score
	report.IsLikelyDeepfake = score > deepfakeThreshold

	if report.IsLikelyDeepfake {
		report.Recommendation = RecommendationLikelyFake
	} else {
		report.Recommendation = RecommendationVerified
	}

	return report
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (a *Analyzer) transcribe(ctx context.Context, videoURL string) (string, error) {
	id, err := a.submitTranscript(ctx, videoURL)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(a.cfg.PollTimeout)

	for time.Now().Before(deadline) {
		tr, err := a.getTranscript(ctx, id)
		if err != nil {
			return "", err
		}

		switch tr.Status {
		case transcriptStatusCompleted:
			return tr.Text, nil
		case transcriptStatusError:
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, tr.Error)
		}

		if err := worker.Wait(ctx, a.cfg.PollInterval); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: poll timeout after %v", ErrTranscriptionFailed, a.cfg.PollTimeout)
}

func (a *Analyzer) submitTranscript(ctx context.Context, videoURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: videoURL})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create transcript request: %w", err)
	}

	req.Header.Set("Authorization", a.cfg.AssemblyAIKey)
	req.Header.Set("Content-Type", "application/json")

	var tr transcriptResponse
	if err := a.doJSON(req, &tr); err != nil {
		return "", err
	}

	return tr.ID, nil
}

func (a *Analyzer) getTranscript(ctx context.Context, id string) (transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/transcript/"+id, nil)
	if err != nil {
		return transcriptResponse{}, fmt.Errorf("create transcript poll request: %w", err)
	}

	req.Header.Set("Authorization", a.cfg.AssemblyAIKey)

	var tr transcriptResponse
	if err := a.doJSON(req, &tr); err != nil {
		return transcriptResponse{}, err
	}

	return tr, nil
}

type scanRequest struct {
	VideoURL string `json:"video_url"`
}

type scanResponse struct {
	DeepfakeScore float64 `json:"deepfake_score"`
}

// deepfakeScore asks the Deepware scanner for the probability that the video
// is synthetic. Without a key the score is zero.
func (a *Analyzer) deepfakeScore(ctx context.Context, videoURL string) (float64, error) {
	if a.cfg.DeepwareKey == "" {
		return 0, nil
	}

	body, err := json.Marshal(scanRequest{VideoURL: videoURL})
	if err != nil {
		return 0, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.deepwareURL+"/scan", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create scan request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.cfg.DeepwareKey)
	req.Header.Set("Content-Type", "application/json")

	var sr scanResponse
	if err := a.doJSON(req, &sr); err != nil {
		return 0, err
	}

	return sr.DeepfakeScore, nil
}

func (a *Analyzer) doJSON(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("video api request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode video api response: %w", err)
	}

	return nil
}
