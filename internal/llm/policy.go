package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Policy selects between a primary and fallback Provider per spec.md §4.6:
// try primary first, fall back only on a provider-level failure (timeout,
// non-2xx, malformed JSON), never on a low-confidence-but-valid result. If no
// primary key is configured, the fallback is used directly.
type Policy struct {
	primary           Provider
	fallback          Provider
	primaryConfigured bool
	logger            *zap.Logger
}

// NewPolicy builds a primary/fallback extraction policy. primaryConfigured
// should be false when the deployment has no primary API key set, so Extract
// calls the fallback directly instead of paying for a guaranteed-to-fail
// primary call first.
func NewPolicy(primary, fallback Provider, primaryConfigured bool, logger *zap.Logger) *Policy {
	return &Policy{primary: primary, fallback: fallback, primaryConfigured: primaryConfigured, logger: logger}
}

// ProviderName is stamped onto domain.Decision.Provider.
type ProviderName string

const (
	Primary  ProviderName = "primary"
	Fallback ProviderName = "fallback"
)

// Extract runs the primary provider and falls back to the secondary one on
// error. Both providers failing is reported as a single combined error.
func (p *Policy) Extract(ctx context.Context, images []Image) (Fields, Usage, ProviderName, error) {
	if !p.primaryConfigured {
		fields, usage, err := p.fallback.Extract(ctx, images)
		if err != nil {
			return Fields{}, Usage{}, "", fmt.Errorf("extraction failed: fallback: %w", err)
		}
		return fields, usage, Fallback, nil
	}

	fields, usage, err := p.primary.Extract(ctx, images)
	if err == nil {
		return fields, usage, Primary, nil
	}
	p.logger.Warn("primary extraction failed, falling back",
		zap.String("primary", p.primary.Name()), zap.Error(err))

	fields, usage, fbErr := p.fallback.Extract(ctx, images)
	if fbErr == nil {
		return fields, usage, Fallback, nil
	}
	p.logger.Error("fallback extraction also failed",
		zap.String("fallback", p.fallback.Name()), zap.Error(fbErr))

	return Fields{}, Usage{}, "", fmt.Errorf("extraction failed: primary: %w; fallback: %w", err, fbErr)
}
