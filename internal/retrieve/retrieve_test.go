package retrieve

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/validate"
)

func TestDefaultCorpus(t *testing.T) {
	corpus := Default()
	if corpus.Len() != 8 {
		t.Fatalf("Expected 8 items, got %d", corpus.Len())
	}

	items := corpus.Items()
	if items[0].ID != "e1" || items[7].ID != "e8" {
		t.Errorf("Unexpected corpus order: %s..%s", items[0].ID, items[7].ID)
	}
	if items[2].Stance != model.StanceRefute || items[2].Credibility != model.CredibilityS {
		t.Errorf("Unexpected e3: %+v", items[2])
	}
	if !items[7].HasTopic(model.TopicGeneral) {
		t.Errorf("Expected e8 to be tagged general, got %v", items[7].Topics)
	}

	// mutating the copy leaves the corpus intact
	items[0].ID = "changed"
	if corpus.Items()[0].ID != "e1" {
		t.Error("Items must return a copy")
	}
}

func TestDefaultCorpus_TiersMatchClassifier(t *testing.T) {
	classifier := validate.NewAuthorityClassifier(nil)
	for _, item := range Default().Items() {
		if got := classifier.Classify(item.URL); got != item.Credibility {
			t.Errorf("%s: declared %s, classified %s", item.ID, item.Credibility, got)
		}
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "[]", "empty"},
		{"missing id", "- title: t\n  keywords: [a]\n", "missing id"},
		{"missing title", "- id: x\n  keywords: [a]\n", "missing title"},
		{"no topic or keyword", "- id: x\n  title: t\n  topics: [astrology]\n", "at least one topic"},
		{"duplicate", "- id: x\n  title: t\n  keywords: [a]\n- id: x\n  title: u\n  keywords: [b]\n", "duplicate"},
		{"not yaml list", "id: x", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_DerivesFields(t *testing.T) {
	data := `
- id: x1
  title: 卫健委说明
  url: https://www.nhc.gov.cn/notice
  stance: maybe
  topics: [健康, astrology]
  keywords: [" 高血压 ", ""]
- id: x2
  title: 自媒体
  url: https://blog.example.com/
  credibility: a
  stance: SUPPORT
  keywords: [疫苗]
`
	corpus, err := Parse([]byte(data), validate.NewAuthorityClassifier(nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	items := corpus.Items()

	if items[0].Credibility != model.CredibilityS {
		t.Errorf("Expected credibility derived from URL, got %s", items[0].Credibility)
	}
	if items[0].Stance != model.StanceUnrelated {
		t.Errorf("Expected unknown stance to become unrelated, got %s", items[0].Stance)
	}
	if len(items[0].Topics) != 1 || items[0].Topics[0] != model.TopicHealth {
		t.Errorf("Unexpected topics: %v", items[0].Topics)
	}
	if len(items[0].Keywords) != 1 || items[0].Keywords[0] != "高血压" {
		t.Errorf("Unexpected keywords: %v", items[0].Keywords)
	}
	if items[1].Credibility != model.CredibilityA || items[1].Stance != model.StanceSupport {
		t.Errorf("Unexpected second item: %+v", items[1])
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte("- id: only\n  title: t\n  keywords: [转账]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	corpus, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if corpus.Len() != 1 || corpus.Items()[0].Credibility != model.CredibilityB {
		t.Errorf("Unexpected corpus: %+v", corpus.Items())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("Expected error for missing file")
	}

	def, err := Load("", nil)
	if err != nil || def.Len() != 8 {
		t.Errorf("Expected built-in corpus for empty path, got %v", err)
	}
}

func TestRelevance_FraudClaim(t *testing.T) {
	claim := model.Claim{ID: "c1", Text: "收到验证码后请转账", Topic: model.TopicFraud}
	items := Default().Items()

	// e3: two keyword hits (6) + topic bonus (2) + S credibility (3)
	if got := Relevance(claim, items[2]); got != 11 {
		t.Errorf("Expected e3 relevance 11, got %d", got)
	}

	ranked := NewRetriever(Default()).Rank(claim)
	if len(ranked) == 0 || ranked[0].ID != "e3" {
		t.Fatalf("Expected e3 ranked first, got %+v", ranked)
	}
	for _, r := range ranked[1:] {
		if r.Relevance > ranked[0].Relevance {
			t.Errorf("%s outranks e3", r.ID)
		}
	}
}

func TestRelevance_CredibilityAloneNeverQualifies(t *testing.T) {
	claim := model.Claim{Text: "完全无关的内容", Topic: model.TopicGeneral}
	item := model.EvidenceItem{Credibility: model.CredibilityS, Topics: []model.Topic{model.TopicHealth}, Keywords: []string{"疫苗"}}
	if got := Relevance(claim, item); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}

func TestRank_HealthClaim(t *testing.T) {
	claim := model.Claim{ID: "c1", Text: "高血压可以靠吃芹菜治愈", Topic: model.TopicHealth}
	ranked := NewRetriever(Default()).Rank(claim)

	// e1: 2 hits + bonus + S = 11; e2: bonus + S = 5; e5/e6: bonus + A = 4
	if len(ranked) != 2 {
		t.Fatalf("Expected 2 items, got %d: %+v", len(ranked), ranked)
	}
	if ranked[0].ID != "e1" || ranked[0].Relevance != 11 {
		t.Errorf("Expected e1 with 11, got %s with %d", ranked[0].ID, ranked[0].Relevance)
	}
	if ranked[1].ID != "e2" || ranked[1].Relevance != 5 {
		t.Errorf("Expected e2 with 5, got %s with %d", ranked[1].ID, ranked[1].Relevance)
	}
}

func TestRank_StableTieBreakAndCap(t *testing.T) {
	var b strings.Builder
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		b.WriteString("- id: " + id + "\n  title: t\n  credibility: B\n  topics: [general]\n  keywords: [转账]\n")
	}
	b.WriteString("- id: top\n  title: t\n  credibility: S\n  topics: [general]\n  keywords: [转账]\n")

	corpus, err := Parse([]byte(b.String()), nil)
	if err != nil {
		t.Fatal(err)
	}

	ranked := NewRetriever(corpus).Rank(model.Claim{Text: "转账", Topic: model.TopicGeneral})
	want := []string{"top", "a", "b", "c"}
	if len(ranked) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(ranked))
	}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, ranked[i].ID)
		}
	}
}

func TestRetrieve_PlaceholderAndFlattening(t *testing.T) {
	retriever := NewRetriever(Default())
	retriever.now = func() time.Time { return time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC) }

	claims := []model.Claim{
		{ID: "c1", Text: "今天天气不错", Topic: model.TopicGeneral, Keywords: []string{"今天天气不错"}},
		{ID: "c2", Text: "收到验证码后请转账", Topic: model.TopicFraud},
	}
	result := retriever.Retrieve(claims)

	placeholder := result.ByClaim["c1"]
	if len(placeholder) != 1 {
		t.Fatalf("Expected one placeholder, got %d", len(placeholder))
	}
	p := placeholder[0]
	if p.ID != "fallback_c1" || p.Stance != model.StanceUnrelated || p.Credibility != model.CredibilityB {
		t.Errorf("Unexpected placeholder: %+v", p)
	}
	if p.PublishTime != "2026-03-01" || p.URL != "" || p.Keywords[0] != "今天天气不错" {
		t.Errorf("Unexpected placeholder fields: %+v", p)
	}

	if len(result.All) != 1+len(result.ByClaim["c2"]) {
		t.Fatalf("Unexpected flattened length %d", len(result.All))
	}
	if result.All[0].ClaimID != "c1" || result.All[1].ClaimID != "c2" || result.All[1].ID != "e3" {
		t.Errorf("Unexpected flattened order: %+v", result.All)
	}
}

func TestRetrieve_NoClaims(t *testing.T) {
	result := NewRetriever(Default()).Retrieve(nil)
	if len(result.ByClaim) != 0 || result.All == nil || len(result.All) != 0 {
		t.Errorf("Expected empty, non-nil result, got %+v", result)
	}
}
