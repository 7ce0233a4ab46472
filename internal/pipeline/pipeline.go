package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/explain"
	"github.com/ppiankov/factlens/internal/extract"
	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/recognize"
	"github.com/ppiankov/factlens/internal/retrieve"
	"github.com/ppiankov/factlens/internal/score"
	"github.com/ppiankov/factlens/internal/validate"
)

// Pipeline orchestrates recognition, extraction, retrieval, scoring and explanation.
// Runs share only the read-only corpus, so one Pipeline serves concurrent requests.
type Pipeline struct {
	recognizer *recognize.Recognizer
	extractor  *extract.Extractor
	retriever  *retrieve.Retriever
	scorer     *score.Scorer
	llmEnabled bool
	logger     *slog.Logger
	now        func() time.Time
}

// Deps are the collaborators of a pipeline
type Deps struct {
	Completer llm.Completer // nil runs rules and text passthrough only
	Corpus    *retrieve.Corpus
	Logger    *slog.Logger
}

// New creates a pipeline from explicit collaborators
func New(deps Deps) *Pipeline {
	corpus := deps.Corpus
	if corpus == nil {
		corpus = retrieve.Default()
	}
	logger := logging.OrDiscard(deps.Logger)

	return &Pipeline{
		recognizer: recognize.New(deps.Completer, logger),
		extractor:  extract.New(deps.Completer, logger),
		retriever:  retrieve.NewRetriever(corpus),
		scorer:     score.NewScorer(),
		llmEnabled: deps.Completer != nil,
		logger:     logger,
		now:        time.Now,
	}
}

// NewPipeline wires a pipeline from configuration: response cache, completion
// client and evidence corpus. An unconfigured completion service is not an error.
func NewPipeline(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	logger = logging.OrDiscard(logger)

	var store cache.Cache
	if cfg.Cache.Enabled {
		store = cache.New(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	completer, err := llm.NewCompleter(cfg.LLM, store, logger)
	if err != nil {
		return nil, fmt.Errorf("completion client: %w", err)
	}
	if completer == nil {
		logger.Info("completion service not configured, using rule-based extraction")
	}

	corpus, err := retrieve.Load(cfg.Corpus.Path, validate.NewAuthorityClassifier(&cfg.Authority))
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	return New(Deps{Completer: completer, Corpus: corpus, Logger: logger}), nil
}

// LLMEnabled reports whether a completion service is wired in
func (p *Pipeline) LLMEnabled() bool {
	return p.llmEnabled
}

// Analyze runs the full claim-to-verdict pipeline. Degraded paths never fail;
// the only error is a context that is already done.
func (p *Pipeline) Analyze(ctx context.Context, in model.Input) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := p.recognize(ctx, in)

	claims := extract.ClaimsFromTexts(in.ClaimOverrides)
	if len(claims) == 0 {
		claims = p.extractor.Extract(ctx, rec.CleanText)
	}
	claims = extract.PromoteClaim(claims, in.PrimaryClaimIndex)

	evidence := p.retriever.Retrieve(claims)
	verdict := p.scorer.Score(claims, evidence.ByClaim)
	explanation := explain.Explain(verdict.Label, claims, verdict.Reasons)

	p.logger.Debug("analysis complete",
		"provider", rec.Provider,
		"claims", len(claims),
		"label", verdict.Label,
		"score", verdict.Score)

	return &model.AnalysisResult{
		RawText:             rec.RawText,
		CleanText:           rec.CleanText,
		Language:            rec.Language,
		RecognitionProvider: rec.Provider,
		RecognitionNote:     rec.Note,
		Claims:              claims,
		Label:               verdict.Label,
		Score:               verdict.Score,
		Reasons:             verdict.Reasons,
		Evidences:           evidence.All,
		RiskAlerts:          verdict.RiskAlerts,
		EvidenceGrade:       verdict.EvidenceGrade,
		Summary:             explanation.Summary,
		Explanation:         explanation.PlainExplanation,
		NextSteps:           explanation.NextSteps,
		Disclaimer:          explanation.Disclaimer,
		AnalyzedAt:          p.now().UTC(),
	}, nil
}

// Preview runs recognition and extraction only, for the confirm screen
func (p *Pipeline) Preview(ctx context.Context, in model.Input) (*model.Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := p.recognize(ctx, in)
	return &model.Preview{
		Recognition: rec,
		Claims:      p.extractor.Extract(ctx, rec.CleanText),
	}, nil
}

// recognize honours a user-confirmed clean text before falling back to the recognizer
func (p *Pipeline) recognize(ctx context.Context, in model.Input) model.Recognition {
	if override := strings.TrimSpace(in.CleanTextOverride); override != "" {
		return model.Recognition{
			RawText:   override,
			CleanText: override,
			Language:  model.DefaultLanguage,
			Provider:  model.ProviderUserConfirmed,
		}
	}
	return p.recognizer.Recognize(ctx, in.Text, in.Image, in.ImageMIME)
}
