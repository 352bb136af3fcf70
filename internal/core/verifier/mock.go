package verifier

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/appwhistler/factcheckd/internal/core/domain"
)

// Mock is a deterministic provider for tests and local runs without an API
// key. The verdict is derived from the claim text so repeated runs agree.
type Mock struct{}

// NewMock creates a mock verification provider.
func NewMock() *Mock {
	return &Mock{}
}

// VerifyClaim returns a canned verification derived from the claim text.
func (m *Mock) VerifyClaim(_ context.Context, claim, _ string) (domain.Verification, error) {
	verdicts := []domain.Verdict{
		domain.VerdictTrue,
		domain.VerdictFalse,
		domain.VerdictMisleading,
		domain.VerdictUnverified,
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(claim))))
	sum := h.Sum32()

	return domain.Verification{
		Verdict:    verdicts[sum%uint32(len(verdicts))],
		Confidence: 0.5 + float64(sum%50)/100,
		Sources: []domain.Source{
			{Label: "Mock source", URL: "https://example.com/mock"},
		},
		Explanation: "Mock verification result.",
	}, nil
}

var _ Provider = (*Mock)(nil)
