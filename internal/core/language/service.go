// Package language provides language detection and translation for claims,
// backed by the Google Cloud Translation v2 API with a heuristic fallback.
package language

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/platform/observability"
)

const (
	googleTranslateBaseURL = "https://translation.googleapis.com/language/translate/v2"
	defaultDetectTimeout   = 5 * time.Second
	defaultTranslateTime   = 10 * time.Second
	minDetectableLength    = 10

	languageEnglish = "en"

	paramKey    = "key"
	paramQuery  = "q"
	paramSource = "source"
	paramTarget = "target"
	paramFormat = "format"

	statusSuccess = "success"
	statusError   = "error"
)

// ErrTranslationUnavailable indicates the translation backend failed or is not configured.
var ErrTranslationUnavailable = errors.New("translation service unavailable")

var errUnexpectedStatus = errors.New("translate api unexpected status")

// Detection is the outcome of language detection.
type Detection struct {
	Language   string
	Confidence float64
	Name       string
	Method     string
}

// Translation is the outcome of translating a claim to English.
type Translation struct {
	TranslatedText    string
	OriginalLanguage  string
	Confidence        float64
	TranslationNeeded bool
}

// Config configures the language service.
type Config struct {
	APIKey           string
	DetectTimeout    time.Duration
	TranslateTimeout time.Duration
}

// Service detects claim languages and translates claims to English.
type Service struct {
	apiKey          string
	baseURL         string
	detectClient    *http.Client
	translateClient *http.Client
	logger          *zerolog.Logger
}

// NewService creates a language service. An empty API key disables the remote
// backend; detection then relies on heuristics and translation is a no-op.
func NewService(cfg Config, logger *zerolog.Logger) *Service {
	detectTimeout := cfg.DetectTimeout
	if detectTimeout <= 0 {
		detectTimeout = defaultDetectTimeout
	}

	translateTimeout := cfg.TranslateTimeout
	if translateTimeout <= 0 {
		translateTimeout = defaultTranslateTime
	}

	return &Service{
		apiKey:          cfg.APIKey,
		baseURL:         googleTranslateBaseURL,
		detectClient:    &http.Client{Timeout: detectTimeout},
		translateClient: &http.Client{Timeout: translateTimeout},
		logger:          logger,
	}
}

// DetectLanguage determines the language of the given text. Remote detection
// failures fall back to heuristics; very short texts default to English.
func (s *Service) DetectLanguage(ctx context.Context, text string) Detection {
	if len(strings.TrimSpace(text)) < minDetectableLength {
		return Detection{Language: languageEnglish, Confidence: 0.5, Name: LanguageName(languageEnglish), Method: "default"}
	}

	if s.apiKey != "" {
		detection, err := s.detectRemote(ctx, text)
		if err == nil {
			return detection
		}

		s.logger.Warn().Err(err).Msg("remote language detection failed, using heuristic fallback")
	}

	return DetectHeuristic(text)
}

// TranslateToEnglish translates text to English for verification. When the
// source language is already English no call is made. Without an API key the
// original text is returned with TranslationNeeded set, mirroring the
// best-effort contract of the detection path.
func (s *Service) TranslateToEnglish(ctx context.Context, text, sourceLanguage string) (Translation, error) {
	if strings.TrimSpace(text) == "" {
		return Translation{}, fmt.Errorf("%w: empty text", ErrTranslationUnavailable)
	}

	if sourceLanguage == "" {
		sourceLanguage = s.DetectLanguage(ctx, text).Language
	}

	if sourceLanguage == languageEnglish {
		return Translation{
			TranslatedText:    text,
			OriginalLanguage:  languageEnglish,
			Confidence:        1.0,
			TranslationNeeded: false,
		}, nil
	}

	if s.apiKey == "" {
		s.logger.Warn().Msg("GOOGLE_TRANSLATE_API_KEY not set, cannot translate non-English content")

		return Translation{
			TranslatedText:    text,
			OriginalLanguage:  sourceLanguage,
			Confidence:        0,
			TranslationNeeded: true,
		}, nil
	}

	translated, err := s.translate(ctx, text, sourceLanguage, languageEnglish)
	if err != nil {
		observability.TranslationRequests.WithLabelValues(statusError).Inc()

		return Translation{}, fmt.Errorf("%w: %s", ErrTranslationUnavailable, err)
	}

	observability.TranslationRequests.WithLabelValues(statusSuccess).Inc()

	return Translation{
		TranslatedText:    translated,
		OriginalLanguage:  sourceLanguage,
		Confidence:        0.95,
		TranslationNeeded: true,
	}, nil
}

// TranslateVerdict translates an English explanation back to the claim's
// original language. Failures fall back to English.
func (s *Service) TranslateVerdict(ctx context.Context, verdictText, targetLanguage string) string {
	if targetLanguage == "" || targetLanguage == languageEnglish || s.apiKey == "" {
		return verdictText
	}

	translated, err := s.translate(ctx, verdictText, languageEnglish, targetLanguage)
	if err != nil {
		s.logger.Warn().Err(err).Str("target", targetLanguage).Msg("verdict translation failed, returning English")

		return verdictText
	}

	return translated
}

type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"detections"`
	} `json:"data"`
}

func (s *Service) detectRemote(ctx context.Context, text string) (Detection, error) {
	params := url.Values{}
	params.Set(paramKey, s.apiKey)
	params.Set(paramQuery, text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/detect?"+params.Encode(), nil)
	if err != nil {
		return Detection{}, fmt.Errorf("create detect request: %w", err)
	}

	resp, err := s.detectClient.Do(req)
	if err != nil {
		return Detection{}, fmt.Errorf("detect request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Detection{}, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var payload detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Detection{}, fmt.Errorf("decode detect response: %w", err)
	}

	if len(payload.Data.Detections) == 0 || len(payload.Data.Detections[0]) == 0 {
		return Detection{}, fmt.Errorf("%w: empty detections", errUnexpectedStatus)
	}

	detection := payload.Data.Detections[0][0]

	return Detection{
		Language:   detection.Language,
		Confidence: detection.Confidence,
		Name:       LanguageName(detection.Language),
		Method:     "remote",
	}, nil
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (s *Service) translate(ctx context.Context, text, source, target string) (string, error) {
	params := url.Values{}
	params.Set(paramKey, s.apiKey)
	params.Set(paramQuery, text)
	params.Set(paramSource, source)
	params.Set(paramTarget, target)
	params.Set(paramFormat, "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create translate request: %w", err)
	}

	resp, err := s.translateClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var payload translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}

	if len(payload.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: empty translations", errUnexpectedStatus)
	}

	return payload.Data.Translations[0].TranslatedText, nil
}
