package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
)

// Strategy is one way of turning clean text into claims
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) ([]model.Claim, error)
}

// Extractor tries its strategies in order until one yields claims
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New creates the default chain: the completion service when configured, then rules.
// A nil completer means rules only.
func New(completer llm.Completer, logger *slog.Logger) *Extractor {
	var strategies []Strategy
	if completer != nil {
		strategies = append(strategies, NewLLMExtractor(completer))
	}
	strategies = append(strategies, NewRuleExtractor())
	return NewChain(logger, strategies...)
}

// NewChain creates an extractor from an explicit strategy list
func NewChain(logger *slog.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{
		strategies: strategies,
		logger:     logging.OrDiscard(logger),
	}
}

// Extract returns 0-3 claims. Strategy errors are logged and the next strategy is tried;
// they are never returned.
func (e *Extractor) Extract(ctx context.Context, text string) []model.Claim {
	text = strings.TrimSpace(text)
	if text == "" {
		return []model.Claim{}
	}

	for _, strategy := range e.strategies {
		claims, err := strategy.Extract(ctx, text)
		if err != nil {
			e.logger.Warn("claim extraction failed, trying next strategy", "strategy", strategy.Name(), "error", err)
			continue
		}
		if len(claims) == 0 {
			e.logger.Debug("claim extraction returned no claims", "strategy", strategy.Name())
			continue
		}
		if len(claims) > model.MaxClaims {
			claims = claims[:model.MaxClaims]
		}
		return model.Reindex(claims)
	}
	return []model.Claim{}
}

// ClaimsFromTexts builds claims from user-edited texts. Blank entries are skipped.
func ClaimsFromTexts(texts []string) []model.Claim {
	claims := make([]model.Claim, 0, model.MaxClaims)
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		claims = append(claims, NewClaim(text))
		if len(claims) == model.MaxClaims {
			break
		}
	}
	return model.Reindex(claims)
}

// PromoteClaim moves the claim at index to the front, keeping the others in order,
// and reassigns ids. Index 0, out-of-range indexes and single-claim lists are no-ops.
func PromoteClaim(claims []model.Claim, index int) []model.Claim {
	if len(claims) <= 1 || index <= 0 || index >= len(claims) {
		return claims
	}

	reordered := make([]model.Claim, 0, len(claims))
	reordered = append(reordered, claims[index])
	for i, claim := range claims {
		if i != index {
			reordered = append(reordered, claim)
		}
	}
	return model.Reindex(reordered)
}
