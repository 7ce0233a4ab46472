package retrieve

import (
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/factlens/internal/model"
)

const (
	// MaxPerClaim caps the evidence kept for one claim
	MaxPerClaim = 4
	// MinRelevance is the lowest score an item needs to be kept
	MinRelevance = 5

	keywordHitWeight = 3
	topicMatchBonus  = 2
)

// Placeholder texts for claims without qualifying evidence
const (
	placeholderTitle  = "暂未命中高置信证据，请补充上下文后重试"
	placeholderSource = "系统提示"
	placeholderQuote  = "当前没有检索到可直接支持或反驳的权威证据。"
)

// Retriever ranks corpus items against claims
type Retriever struct {
	corpus *Corpus
	now    func() time.Time
}

// NewRetriever creates a retriever over a loaded corpus
func NewRetriever(corpus *Corpus) *Retriever {
	return &Retriever{corpus: corpus, now: time.Now}
}

// Result holds retrieved evidence per claim and flattened in claim order
type Result struct {
	ByClaim map[string][]model.EvidenceItem
	All     []model.ClaimEvidence
}

// Retrieve returns at least one evidence item for every claim
func (r *Retriever) Retrieve(claims []model.Claim) Result {
	result := Result{
		ByClaim: make(map[string][]model.EvidenceItem, len(claims)),
		All:     []model.ClaimEvidence{},
	}

	for _, claim := range claims {
		var items []model.EvidenceItem
		for _, ranked := range r.Rank(claim) {
			items = append(items, ranked.EvidenceItem)
		}
		if len(items) == 0 {
			items = []model.EvidenceItem{r.placeholder(claim)}
		}

		result.ByClaim[claim.ID] = items
		for _, item := range items {
			result.All = append(result.All, model.ClaimEvidence{ClaimID: claim.ID, EvidenceItem: item})
		}
	}

	return result
}

// Rank scores every corpus item against the claim and returns the best qualifying
// items, highest first. Ties keep corpus order.
func (r *Retriever) Rank(claim model.Claim) []model.RankedEvidence {
	var ranked []model.RankedEvidence
	for _, item := range r.corpus.items {
		if score := Relevance(claim, item); score >= MinRelevance {
			ranked = append(ranked, model.RankedEvidence{EvidenceItem: item, Relevance: score})
		}
	}

	slices.SortStableFunc(ranked, func(a, b model.RankedEvidence) int {
		return b.Relevance - a.Relevance
	})

	if len(ranked) > MaxPerClaim {
		ranked = ranked[:MaxPerClaim]
	}
	return ranked
}

// Relevance scores one item for one claim. Credibility alone never qualifies:
// without a keyword hit or topic match the score is 0.
func Relevance(claim model.Claim, item model.EvidenceItem) int {
	hits := 0
	for _, keyword := range item.Keywords {
		if strings.Contains(claim.Text, keyword) {
			hits++
		}
	}

	bonus := 0
	if item.HasTopic(claim.Topic) {
		bonus = topicMatchBonus
	}

	if hits == 0 && bonus == 0 {
		return 0
	}
	return hits*keywordHitWeight + bonus + item.Credibility.Weight()
}

func (r *Retriever) placeholder(claim model.Claim) model.EvidenceItem {
	keywords := make([]string, len(claim.Keywords))
	copy(keywords, claim.Keywords)

	return model.EvidenceItem{
		ID:          "fallback_" + claim.ID,
		Title:       placeholderTitle,
		Source:      placeholderSource,
		URL:         "",
		PublishTime: r.now().UTC().Format("2006-01-02"),
		Credibility: model.CredibilityB,
		Stance:      model.StanceUnrelated,
		Topics:      []model.Topic{model.TopicGeneral},
		Keywords:    keywords,
		Quote:       placeholderQuote,
	}
}
