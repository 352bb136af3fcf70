package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/platform/observability"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimiterBurst        = 5
	defaultMaxClaimLength   = 2000

	verifyPromptTemplate = `You are a rigorous fact-checker. Verify the following claim and respond with a JSON object.

Claim: %q
Category: %s

Respond with exactly these fields:
{
  "verdict": one of "TRUE", "FALSE", "MISLEADING", "UNVERIFIED",
  "confidence": a number between 0.0 and 1.0,
  "sources": an array of {"label": string, "url": string} citing evidence,
  "explanation": a short paragraph justifying the verdict
}`
)

// ErrCircuitBreakerOpen indicates the circuit breaker is open.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// ErrMalformedVerdict indicates the provider response could not be parsed.
var ErrMalformedVerdict = errors.New("malformed verdict response")

// Config configures the OpenAI-backed provider.
type Config struct {
	APIKey         string
	Model          string
	RateLimitRPS   int
	MaxClaimLength int
}

// OpenAI verifies claims through the OpenAI chat completion API.
type OpenAI struct {
	cfg         Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAI creates the production verification provider.
func NewOpenAI(cfg Config, logger *zerolog.Logger) *OpenAI {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}

	if cfg.MaxClaimLength <= 0 {
		cfg.MaxClaimLength = defaultMaxClaimLength
	}

	return &OpenAI{
		cfg:         cfg,
		client:      openai.NewClient(cfg.APIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
	}
}

// VerifyClaim runs one comprehensive verification of the claim.
func (o *OpenAI) VerifyClaim(ctx context.Context, claim, category string) (domain.Verification, error) {
	if err := o.checkCircuit(); err != nil {
		return domain.Verification{}, err
	}

	if err := o.rateLimiter.Wait(ctx); err != nil {
		return domain.Verification{}, fmt.Errorf("rate limiter: %w", err)
	}

	if len(claim) > o.cfg.MaxClaimLength {
		claim = claim[:o.cfg.MaxClaimLength]
	}

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(verifyPromptTemplate, claim, category),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.ProviderRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		o.recordFailure()
		observability.ProviderRequests.WithLabelValues("error").Inc()

		return domain.Verification{}, fmt.Errorf("verify claim: %w", err)
	}

	o.recordSuccess()
	observability.ProviderRequests.WithLabelValues("success").Inc()

	if len(resp.Choices) == 0 {
		return domain.Verification{}, fmt.Errorf("%w: no choices", ErrMalformedVerdict)
	}

	return parseVerification(resp.Choices[0].Message.Content)
}

func (o *OpenAI) checkCircuit() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if time.Now().Before(o.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", ErrCircuitBreakerOpen, o.circuitOpenUntil)
	}

	return nil
}

func (o *OpenAI) recordSuccess() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.consecutiveFailures = 0
}

func (o *OpenAI) recordFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.consecutiveFailures++
	if o.consecutiveFailures >= circuitBreakerThreshold {
		o.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		o.logger.Warn().
			Int("consecutive_failures", o.consecutiveFailures).
			Time("open_until", o.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

type verificationPayload struct {
	Verdict     string          `json:"verdict"`
	Confidence  float64         `json:"confidence"`
	Sources     []domain.Source `json:"sources"`
	Explanation string          `json:"explanation"`
}

// parseVerification decodes a provider response into a Verification,
// tolerating markdown fences around the JSON object.
func parseVerification(content string) (domain.Verification, error) {
	var payload verificationPayload

	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return domain.Verification{}, fmt.Errorf("%w: %s", ErrMalformedVerdict, err)
	}

	verdict, err := domain.ParseVerdict(payload.Verdict)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("%w: %s", ErrMalformedVerdict, err)
	}

	return domain.Verification{
		Verdict:     verdict,
		Confidence:  clampConfidence(payload.Confidence),
		Sources:     payload.Sources,
		Explanation: payload.Explanation,
	}, nil
}

func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// Ensure OpenAI implements Provider interface.
var _ Provider = (*OpenAI)(nil)
