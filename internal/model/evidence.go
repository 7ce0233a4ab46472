package model

// EvidenceItem is a single entry of the curated evidence corpus
type EvidenceItem struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title" yaml:"title"`
	Source      string      `json:"source" yaml:"source"`
	URL         string      `json:"url" yaml:"url"`
	PublishTime string      `json:"publish_time" yaml:"publish_time"` // YYYY-MM-DD
	Credibility Credibility `json:"credibility" yaml:"credibility"`
	Stance      Stance      `json:"stance" yaml:"stance"`
	Topics      []Topic     `json:"topics" yaml:"topics"`
	Keywords    []string    `json:"keywords" yaml:"keywords"`
	Quote       string      `json:"quote" yaml:"quote"`
}

// HasTopic reports whether the item is tagged with the topic
func (e EvidenceItem) HasTopic(topic Topic) bool {
	for _, t := range e.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// RankedEvidence is an evidence item paired with its relevance to one claim
type RankedEvidence struct {
	EvidenceItem
	Relevance int `json:"-"`
}

// ClaimEvidence is an evidence item tagged with the claim it was retrieved for
type ClaimEvidence struct {
	ClaimID string `json:"claim_id"`
	EvidenceItem
}

// Credibility is the S/A/B source-authority tier
type Credibility string

const (
	CredibilityS Credibility = "S" // Government, national health and regulatory bodies
	CredibilityA Credibility = "A" // International organisations, major official media
	CredibilityB Credibility = "B" // Popular science, aggregated or unverified sources
)

// Weight maps the tier to its integer weight; unknown tiers weigh 1
func (c Credibility) Weight() int {
	switch c {
	case CredibilityS:
		return 3
	case CredibilityA:
		return 2
	default:
		return 1
	}
}

// ParseCredibility validates a tier string
func ParseCredibility(value string) (Credibility, bool) {
	switch c := Credibility(value); c {
	case CredibilityS, CredibilityA, CredibilityB:
		return c, true
	}
	return "", false
}

// Stance is an evidence item's relationship to a claim
type Stance string

const (
	StanceSupport   Stance = "support"
	StanceRefute    Stance = "refute"
	StanceUnrelated Stance = "unrelated"
)

// ParseStance validates a stance string
func ParseStance(value string) (Stance, bool) {
	switch s := Stance(value); s {
	case StanceSupport, StanceRefute, StanceUnrelated:
		return s, true
	}
	return "", false
}
