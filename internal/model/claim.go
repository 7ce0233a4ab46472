package model

import "fmt"

// MaxClaims caps how many claims a single analysis carries
const MaxClaims = 3

// MaxKeywords caps the keyword list attached to a claim
const MaxKeywords = 6

// Claim represents a single verifiable assertion extracted from the input
type Claim struct {
	ID        string    `json:"id"`         // Positional id: c1, c2, ...
	Text      string    `json:"claim"`      // The claim text itself
	Topic     Topic     `json:"topic"`      // Detected or model-assigned topic
	RiskLevel RiskLevel `json:"risk_level"` // high, medium, low
	Keywords  []string  `json:"keywords"`   // 1..6 retrieval keywords
}

// Topic classifies the subject area of a claim
type Topic string

const (
	TopicHealth       Topic = "health"
	TopicFraud        Topic = "fraud"
	TopicFinance      Topic = "finance"
	TopicPolicy       Topic = "policy"
	TopicPublicSafety Topic = "public_safety"
	TopicGeneral      Topic = "general"
)

// topicLabels maps the Chinese labels used in prompts and legacy payloads
var topicLabels = map[string]Topic{
	"健康":   TopicHealth,
	"诈骗":   TopicFraud,
	"金融":   TopicFinance,
	"政策":   TopicPolicy,
	"公共安全": TopicPublicSafety,
	"通用":   TopicGeneral,
}

// ParseTopic validates a loosely-typed topic value.
// Accepts the enum identifiers and their Chinese labels.
func ParseTopic(value string) (Topic, bool) {
	switch t := Topic(value); t {
	case TopicHealth, TopicFraud, TopicFinance, TopicPolicy, TopicPublicSafety, TopicGeneral:
		return t, true
	}
	if t, ok := topicLabels[value]; ok {
		return t, true
	}
	return "", false
}

// IsHighRisk reports whether claims on this topic default to high risk
func (t Topic) IsHighRisk() bool {
	switch t {
	case TopicHealth, TopicFraud, TopicFinance, TopicPublicSafety, TopicPolicy:
		return true
	default:
		return false
	}
}

// RiskLevel indicates how harmful a false claim on this subject could be
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// ParseRiskLevel validates a loosely-typed risk level value
func ParseRiskLevel(value string) (RiskLevel, bool) {
	switch r := RiskLevel(value); r {
	case RiskHigh, RiskMedium, RiskLow:
		return r, true
	}
	return "", false
}

// DefaultRiskLevel derives the risk level from the topic
func DefaultRiskLevel(topic Topic) RiskLevel {
	if topic.IsHighRisk() {
		return RiskHigh
	}
	return RiskMedium
}

// ClaimID returns the positional id for the claim at index i (0-based)
func ClaimID(i int) string {
	return fmt.Sprintf("c%d", i+1)
}

// Reindex assigns ids c1..cN in slice order
func Reindex(claims []Claim) []Claim {
	for i := range claims {
		claims[i].ID = ClaimID(i)
	}
	return claims
}
