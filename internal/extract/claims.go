package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/factlens/internal/model"
)

// triggerPattern matches assertive, urgent, absolute, money and authority cues
var triggerPattern = regexp.MustCompile(`(可以|能够|必须|马上|立刻|官方宣布|100%|包治百病|治愈|治疗|新规|紧急通知|保本|高收益|验证码|转账|封城|停售|禁用)`)

var sentenceTerminators = regexp.MustCompile(`[。！？!\n]`)

var keywordSeparators = regexp.MustCompile(`[，,；;：:、]`)

type topicKeywords struct {
	topic    model.Topic
	keywords []string
}

// topicTable is ordered; the first topic with a matching keyword wins
var topicTable = []topicKeywords{
	{model.TopicHealth, []string{"高血压", "血糖", "癌症", "治愈", "治疗", "偏方", "保健品", "疫苗"}},
	{model.TopicFraud, []string{"转账", "验证码", "客服", "银行卡", "退款", "扫码"}},
	{model.TopicFinance, []string{"保本", "高收益", "稳赚", "理财", "投资群"}},
	{model.TopicPolicy, []string{"官方宣布", "新规", "通知", "政策", "法规"}},
	{model.TopicPublicSafety, []string{"灾害", "爆炸", "封城", "紧急", "全城"}},
}

// RuleExtractor selects claims by trigger phrases. It never fails.
type RuleExtractor struct{}

// NewRuleExtractor creates a rule-based extractor
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

// Name identifies the strategy in logs
func (e *RuleExtractor) Name() string {
	return "rule"
}

// Extract splits text into sentences and keeps up to three claim candidates.
// Sentences with a trigger phrase are preferred; otherwise the leading sentences are used.
func (e *RuleExtractor) Extract(_ context.Context, text string) ([]model.Claim, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var candidates []string
	for _, sentence := range sentences {
		if triggerPattern.MatchString(sentence) {
			candidates = append(candidates, sentence)
		}
	}
	if len(candidates) == 0 {
		candidates = sentences
	}
	if len(candidates) > model.MaxClaims {
		candidates = candidates[:model.MaxClaims]
	}

	claims := make([]model.Claim, 0, len(candidates))
	for _, sentence := range candidates {
		claims = append(claims, NewClaim(sentence))
	}
	return model.Reindex(claims), nil
}

// NewClaim builds a claim from free text, deriving topic, risk level and keywords.
// The id is left for the caller to assign.
func NewClaim(text string) model.Claim {
	text = strings.TrimSpace(text)
	topic := DetectTopic(text)
	return model.Claim{
		Text:      text,
		Topic:     topic,
		RiskLevel: model.DefaultRiskLevel(topic),
		Keywords:  DeriveKeywords(text),
	}
}

// DetectTopic returns the first topic whose keyword appears in text, or general
func DetectTopic(text string) model.Topic {
	for _, entry := range topicTable {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				return entry.topic
			}
		}
	}
	return model.TopicGeneral
}

// DeriveKeywords splits text on punctuation and whitespace, keeping distinct
// tokens of at least two characters, at most six. Text without any such token
// is used whole so a claim always carries one keyword.
func DeriveKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string

	for _, token := range strings.Fields(keywordSeparators.ReplaceAllString(text, " ")) {
		if utf8.RuneCountInString(token) < 2 || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
		if len(keywords) == model.MaxKeywords {
			break
		}
	}

	if len(keywords) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			keywords = []string{trimmed}
		}
	}
	return keywords
}

// splitSentences splits on Chinese and ASCII terminators and newlines, dropping empties
func splitSentences(text string) []string {
	var sentences []string
	for _, part := range sentenceTerminators.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
