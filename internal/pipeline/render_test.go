package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/factlens/internal/model"
)

func analyzeRumour(t *testing.T) *model.AnalysisResult {
	t.Helper()
	result, err := New(Deps{}).Analyze(context.Background(), model.Input{Text: "高血压可以靠吃芹菜治愈。"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return result
}

func TestRenderer_RenderJSON(t *testing.T) {
	result := analyzeRumour(t)
	path := filepath.Join(t.TempDir(), "result.json")

	if err := NewRenderer(&bytes.Buffer{}).RenderJSON(result, path); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Expected valid JSON: %v", err)
	}
	for _, key := range []string{"claims", "label", "score", "evidences", "risk_alerts", "evidence_grade", "disclaimer", "analyzed_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected key %q in output", key)
		}
	}
}

func TestRenderer_RenderJSON_Stdout(t *testing.T) {
	var out bytes.Buffer
	if err := NewRenderer(&out).RenderJSON(analyzeRumour(t), "-"); err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}
	if !strings.Contains(out.String(), `"label": "untrusted"`) {
		t.Errorf("Expected label in output, got %s", out.String())
	}
}

func TestRenderer_RenderMarkdown(t *testing.T) {
	var out bytes.Buffer
	if err := NewRenderer(&out).RenderMarkdown(analyzeRumour(t), "-"); err != nil {
		t.Fatalf("RenderMarkdown failed: %v", err)
	}

	md := out.String()
	for _, want := range []string{"# 核查结果：不可信（24/100）", "## 证据", "[高血压治疗需遵循规范诊疗", "## 风险提示", "## 建议"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected %q in markdown:\n%s", want, md)
		}
	}
}

func TestRenderer_RenderSummary(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out).RenderSummary(analyzeRumour(t))

	summary := out.String()
	if !strings.Contains(summary, "不可信 (untrusted)") || !strings.Contains(summary, "[c1] 高血压可以靠吃芹菜治愈") {
		t.Errorf("Unexpected summary:\n%s", summary)
	}
}

func TestRenderer_WriteError(t *testing.T) {
	err := NewRenderer(&bytes.Buffer{}).RenderJSON(analyzeRumour(t), filepath.Join(t.TempDir(), "missing", "out.json"))
	if err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}
