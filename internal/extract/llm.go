package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
)

const claimSystemPrompt = "你是事实核查助手，负责从输入文本提取可验证主张。只返回 JSON，不要额外解释。"

// LLMExtractor asks a completion service for claims
type LLMExtractor struct {
	completer llm.Completer
}

// NewLLMExtractor creates an extractor backed by the completion service
func NewLLMExtractor(completer llm.Completer) *LLMExtractor {
	return &LLMExtractor{completer: completer}
}

// Name identifies the strategy in logs
func (e *LLMExtractor) Name() string {
	return "llm"
}

// Extract requests 1-3 claims and normalizes each returned item
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]model.Claim, error) {
	payload, err := e.completer.Complete(ctx, llm.Request{
		Kind:        llm.ModelText,
		Temperature: 0,
		Messages: []llm.Message{
			llm.SystemMessage(claimSystemPrompt),
			llm.UserMessage(claimUserPrompt(text)),
		},
	})
	if err != nil {
		return nil, err
	}

	claims, err := ParseClaimsPayload(payload)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func claimUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("请从下面文本提取 1-3 条可验证主张，并输出字段 claims。")
	b.WriteString("每条必须包含 claim, topic, risk_level, keywords。")
	b.WriteString("topic 只能是：健康/诈骗/金融/政策/公共安全/通用。")
	b.WriteString("risk_level 只能是：high/medium/low。")
	b.WriteString("\n\n文本：\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString(`返回格式：{"claims":[{"claim":"...","topic":"健康","risk_level":"high","keywords":["词1","词2"]}]}`)
	return b.String()
}

// ParseClaimsPayload validates a {"claims":[...]} reply.
// Items without claim text are dropped; missing or invalid fields are derived
// from the claim text. The result is capped and re-indexed.
func ParseClaimsPayload(payload json.RawMessage) ([]model.Claim, error) {
	var envelope struct {
		Claims []json.RawMessage `json:"claims"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode claims payload: %w", err)
	}

	claims := make([]model.Claim, 0, model.MaxClaims)
	for _, raw := range envelope.Claims {
		claim, ok := parseClaimItem(raw)
		if !ok {
			continue
		}
		claims = append(claims, claim)
		if len(claims) == model.MaxClaims {
			break
		}
	}
	return model.Reindex(claims), nil
}

func parseClaimItem(raw json.RawMessage) (model.Claim, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.Claim{}, false
	}

	text := strings.TrimSpace(stringField(fields, "claim"))
	if text == "" {
		return model.Claim{}, false
	}

	claim := NewClaim(text)

	if topic, ok := model.ParseTopic(strings.TrimSpace(stringField(fields, "topic"))); ok {
		claim.Topic = topic
		claim.RiskLevel = model.DefaultRiskLevel(topic)
	}
	if risk, ok := model.ParseRiskLevel(strings.ToLower(strings.TrimSpace(stringField(fields, "risk_level")))); ok {
		claim.RiskLevel = risk
	}
	if keywords := stringListField(fields, "keywords"); len(keywords) > 0 {
		claim.Keywords = keywords
	}

	return claim, true
}

// stringField returns the field as a string, or "" when absent or not a string
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringListField keeps the non-blank entries of an array field, capped at MaxKeywords.
// Numbers are stringified; other element types are skipped.
func stringListField(fields map[string]json.RawMessage, name string) []string {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var out []string
	for _, item := range items {
		var value string
		if err := json.Unmarshal(item, &value); err != nil {
			var n json.Number
			if err := json.Unmarshal(item, &n); err != nil {
				continue
			}
			value = n.String()
		}
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		out = append(out, value)
		if len(out) == model.MaxKeywords {
			break
		}
	}
	return out
}
