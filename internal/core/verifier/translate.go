package verifier

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/appwhistler/factcheckd/internal/core/domain"
	"github.com/appwhistler/factcheckd/internal/core/language"
)

// Translating wraps a Provider and translates non-English claims to English
// before verification. Translation failures are non-fatal: the claim is
// verified in its original language.
type Translating struct {
	inner    Provider
	language *language.Service
	logger   *zerolog.Logger
}

// NewTranslating wraps a provider with claim translation.
func NewTranslating(inner Provider, svc *language.Service, logger *zerolog.Logger) *Translating {
	return &Translating{inner: inner, language: svc, logger: logger}
}

// VerifyClaim translates the claim to English when needed and delegates to
// the wrapped provider.
func (t *Translating) VerifyClaim(ctx context.Context, claim, category string) (domain.Verification, error) {
	detection := t.language.DetectLanguage(ctx, claim)

	if detection.Language != "en" {
		translation, err := t.language.TranslateToEnglish(ctx, claim, detection.Language)
		if err != nil {
			t.logger.Warn().Err(err).
				Str("language", detection.Language).
				Msg("claim translation failed, verifying in original language")
		} else if translation.TranslationNeeded && translation.Confidence > 0 {
			claim = translation.TranslatedText
		}
	}

	return t.inner.VerifyClaim(ctx, claim, category)
}

var _ Provider = (*Translating)(nil)
