package extract

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
)

func TestRuleExtractor_TriggerSentenceOnly(t *testing.T) {
	claims, err := NewRuleExtractor().Extract(context.Background(), "高血压可以靠吃芹菜治愈。今天天气不错。")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d: %+v", len(claims), claims)
	}

	c := claims[0]
	if c.ID != "c1" {
		t.Errorf("Expected id c1, got %s", c.ID)
	}
	if c.Text != "高血压可以靠吃芹菜治愈" {
		t.Errorf("Unexpected claim text %q", c.Text)
	}
	if c.Topic != model.TopicHealth {
		t.Errorf("Expected topic health, got %s", c.Topic)
	}
	if c.RiskLevel != model.RiskHigh {
		t.Errorf("Expected risk high, got %s", c.RiskLevel)
	}
}

func TestRuleExtractor_FallsBackToLeadingSentences(t *testing.T) {
	text := "第一句话\n第二句话！第三句话？第四句话"
	claims, _ := NewRuleExtractor().Extract(context.Background(), text)

	if len(claims) != 3 {
		t.Fatalf("Expected 3 claims, got %d", len(claims))
	}
	want := []string{"第一句话", "第二句话", "第三句话"}
	for i, c := range claims {
		if c.Text != want[i] {
			t.Errorf("Claim %d: expected %q, got %q", i, want[i], c.Text)
		}
		if c.Topic != model.TopicGeneral || c.RiskLevel != model.RiskMedium {
			t.Errorf("Claim %d: expected general/medium, got %s/%s", i, c.Topic, c.RiskLevel)
		}
		if c.ID != model.ClaimID(i) {
			t.Errorf("Claim %d: expected id %s, got %s", i, model.ClaimID(i), c.ID)
		}
	}
}

func TestRuleExtractor_Bounds(t *testing.T) {
	inputs := []string{
		"",
		"。。。",
		"马上转账到安全账户！银行客服说验证码必须告诉他。官方宣布新规。保本高收益稳赚不赔。封城通知是假的",
		"a",
		"今天 天气 很好，适合 出门 散步 看看 风景 喝茶",
	}

	for _, input := range inputs {
		claims, err := NewRuleExtractor().Extract(context.Background(), input)
		if err != nil {
			t.Fatalf("Unexpected error for %q: %v", input, err)
		}
		if len(claims) > model.MaxClaims {
			t.Errorf("Input %q: expected at most %d claims, got %d", input, model.MaxClaims, len(claims))
		}
		for _, c := range claims {
			if c.Text == "" {
				t.Errorf("Input %q: empty claim text", input)
			}
			if _, ok := model.ParseTopic(string(c.Topic)); !ok {
				t.Errorf("Input %q: invalid topic %q", input, c.Topic)
			}
			if len(c.Keywords) == 0 || len(c.Keywords) > model.MaxKeywords {
				t.Errorf("Input %q: expected 1..%d keywords, got %v", input, model.MaxKeywords, c.Keywords)
			}
		}
	}
}

func TestDetectTopic(t *testing.T) {
	tests := []struct {
		text string
		want model.Topic
	}{
		{"疫苗可以预防重症", model.TopicHealth},
		{"客服让我提供验证码", model.TopicFraud},
		{"这个理财保本", model.TopicFinance},
		{"官方宣布新规", model.TopicPolicy},
		{"全城紧急", model.TopicPublicSafety},
		{"今天天气不错", model.TopicGeneral},
		// health is checked before fraud
		{"治疗费用请转账", model.TopicHealth},
	}

	for _, tt := range tests {
		if got := DetectTopic(tt.text); got != tt.want {
			t.Errorf("DetectTopic(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestDeriveKeywords(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"高血压，芹菜；治愈：偏方、高血压", []string{"高血压", "芹菜", "治愈", "偏方"}},
		{"a bb cc bb d", []string{"bb", "cc"}},
		{"一 二 三", []string{"一 二 三"}},
		{"aa bb cc dd ee ff gg hh", []string{"aa", "bb", "cc", "dd", "ee", "ff"}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := DeriveKeywords(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DeriveKeywords(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestParseClaimsPayload(t *testing.T) {
	payload := json.RawMessage(`{"claims":[
		{"claim":"  ", "topic":"健康"},
		{"claim":"高血压可以靠芹菜治愈","topic":"健康","risk_level":"HIGH","keywords":["高血压"," ",123]},
		{"claim":"转账前先核实","topic":"unknown","keywords":[]},
		{"claim":"今天是晴天","topic":"general","risk_level":"extreme"},
		{"claim":"第四条会被截断"}
	]}`)

	claims, err := ParseClaimsPayload(payload)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(claims) != 3 {
		t.Fatalf("Expected 3 claims, got %d", len(claims))
	}

	if claims[0].ID != "c1" || claims[0].Topic != model.TopicHealth || claims[0].RiskLevel != model.RiskHigh {
		t.Errorf("Unexpected first claim: %+v", claims[0])
	}
	if !reflect.DeepEqual(claims[0].Keywords, []string{"高血压", "123"}) {
		t.Errorf("Unexpected keywords: %v", claims[0].Keywords)
	}

	// invalid topic falls back to detection; empty keywords are derived
	if claims[1].Topic != model.TopicFraud || claims[1].RiskLevel != model.RiskHigh {
		t.Errorf("Unexpected second claim: %+v", claims[1])
	}
	if len(claims[1].Keywords) == 0 {
		t.Error("Expected derived keywords for second claim")
	}

	// invalid risk level falls back to the topic default
	if claims[2].Topic != model.TopicGeneral || claims[2].RiskLevel != model.RiskMedium {
		t.Errorf("Unexpected third claim: %+v", claims[2])
	}
}

func TestParseClaimsPayload_Invalid(t *testing.T) {
	if _, err := ParseClaimsPayload(json.RawMessage(`[1,2]`)); err == nil {
		t.Error("Expected error for non-object payload")
	}

	claims, err := ParseClaimsPayload(json.RawMessage(`{"claims":"nope"}`))
	if err == nil && len(claims) != 0 {
		t.Errorf("Expected no claims, got %+v", claims)
	}
}

type stubCompleter struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (s *stubCompleter) Complete(_ context.Context, _ llm.Request) (json.RawMessage, error) {
	s.calls++
	return s.payload, s.err
}

func TestExtractor_FallbackChain(t *testing.T) {
	text := "高血压可以靠吃芹菜治愈。今天天气不错。"

	tests := []struct {
		name      string
		completer *stubCompleter
		wantText  string
	}{
		{
			name:      "llm claims used",
			completer: &stubCompleter{payload: json.RawMessage(`{"claims":[{"claim":"芹菜能治愈高血压","topic":"健康"}]}`)},
			wantText:  "芹菜能治愈高血压",
		},
		{
			name:      "llm error falls back to rules",
			completer: &stubCompleter{err: errors.New("connection refused")},
			wantText:  "高血压可以靠吃芹菜治愈",
		},
		{
			name:      "llm empty falls back to rules",
			completer: &stubCompleter{payload: json.RawMessage(`{"claims":[]}`)},
			wantText:  "高血压可以靠吃芹菜治愈",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := New(tt.completer, nil).Extract(context.Background(), text)
			if len(claims) != 1 {
				t.Fatalf("Expected 1 claim, got %d", len(claims))
			}
			if claims[0].Text != tt.wantText {
				t.Errorf("Expected %q, got %q", tt.wantText, claims[0].Text)
			}
			if tt.completer.calls != 1 {
				t.Errorf("Expected 1 completion call, got %d", tt.completer.calls)
			}
		})
	}
}

func TestExtractor_EmptyInput(t *testing.T) {
	completer := &stubCompleter{}
	claims := New(completer, nil).Extract(context.Background(), "   ")
	if len(claims) != 0 {
		t.Errorf("Expected no claims, got %d", len(claims))
	}
	if completer.calls != 0 {
		t.Error("Expected no completion call for empty input")
	}
}

func TestExtractor_RulesOnlyWithoutCompleter(t *testing.T) {
	claims := New(nil, nil).Extract(context.Background(), "验证码不要告诉任何人")
	if len(claims) != 1 || claims[0].Topic != model.TopicFraud {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestPromoteClaim(t *testing.T) {
	claims := ClaimsFromTexts([]string{"甲说法", "乙说法", "丙说法"})

	got := PromoteClaim(claims, 2)
	wantTexts := []string{"丙说法", "甲说法", "乙说法"}
	for i, c := range got {
		if c.Text != wantTexts[i] {
			t.Errorf("Position %d: expected %q, got %q", i, wantTexts[i], c.Text)
		}
		if c.ID != model.ClaimID(i) {
			t.Errorf("Position %d: expected id %s, got %s", i, model.ClaimID(i), c.ID)
		}
	}

	for _, index := range []int{0, -1, 3, 99} {
		same := PromoteClaim(ClaimsFromTexts([]string{"甲说法", "乙说法"}), index)
		if same[0].Text != "甲说法" || same[1].Text != "乙说法" {
			t.Errorf("Index %d: expected no-op, got %+v", index, same)
		}
	}
}

func TestClaimsFromTexts(t *testing.T) {
	claims := ClaimsFromTexts([]string{"  ", " 保本高收益理财 ", "", "疫苗可以预防重症", "第三条", "第四条"})
	if len(claims) != 3 {
		t.Fatalf("Expected 3 claims, got %d", len(claims))
	}
	if claims[0].Text != "保本高收益理财" || claims[0].Topic != model.TopicFinance || claims[0].ID != "c1" {
		t.Errorf("Unexpected first claim: %+v", claims[0])
	}
	if claims[1].Topic != model.TopicHealth || claims[1].ID != "c2" {
		t.Errorf("Unexpected second claim: %+v", claims[1])
	}

	if got := ClaimsFromTexts([]string{" ", ""}); len(got) != 0 {
		t.Errorf("Expected no claims from blank overrides, got %d", len(got))
	}
}
