package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/factlens/internal/explain"
	"github.com/ppiankov/factlens/internal/model"
)

// Renderer writes analysis results as JSON, Markdown and a terminal summary
type Renderer struct {
	out io.Writer // terminal summary and "-" paths
}

// NewRenderer creates a renderer printing to out
func NewRenderer(out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{out: out}
}

// RenderJSON writes the indented result to path, or to the renderer output when path is "-"
func (r *Renderer) RenderJSON(result *model.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')
	return r.write(path, data)
}

// RenderMarkdown writes a human-readable report to path
func (r *Renderer) RenderMarkdown(result *model.AnalysisResult, path string) error {
	var b strings.Builder
	copyText := explain.Explain(result.Label, result.Claims, result.Reasons)

	fmt.Fprintf(&b, "# 核查结果：%s（%d/100）\n\n", copyText.LabelText, result.Score)
	fmt.Fprintf(&b, "%s\n\n", result.Explanation)

	if len(result.Claims) > 0 {
		b.WriteString("## 主张\n\n")
		for _, c := range result.Claims {
			fmt.Fprintf(&b, "- **%s** %s（%s，风险 %s）\n", c.ID, c.Text, c.Topic, c.RiskLevel)
		}
		b.WriteString("\n")
	}

	if len(result.Evidences) > 0 {
		b.WriteString("## 证据\n\n")
		b.WriteString("| 主张 | 等级 | 立场 | 来源 | 标题 | 发布时间 |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, ev := range result.Evidences {
			title := ev.Title
			if ev.URL != "" {
				title = fmt.Sprintf("[%s](%s)", ev.Title, ev.URL)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				ev.ClaimID, ev.Credibility, ev.Stance, ev.Source, title, ev.PublishTime)
		}
		b.WriteString("\n")
	}

	if len(result.RiskAlerts) > 0 {
		b.WriteString("## 风险提示\n\n")
		for _, alert := range result.RiskAlerts {
			fmt.Fprintf(&b, "- %s\n", alert)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 建议\n\n")
	for _, step := range result.NextSteps {
		fmt.Fprintf(&b, "- %s\n", step)
	}
	fmt.Fprintf(&b, "\n---\n\n_%s_\n", result.Disclaimer)

	return r.write(path, []byte(b.String()))
}

// RenderSummary prints a short verdict block to the terminal
func (r *Renderer) RenderSummary(result *model.AnalysisResult) {
	copyText := explain.Explain(result.Label, result.Claims, result.Reasons)

	fmt.Fprintln(r.out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(r.out, "  结论: %s (%s)   评分: %d/100   证据等级: %s\n",
		copyText.LabelText, result.Label, result.Score, result.EvidenceGrade)
	fmt.Fprintln(r.out, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(r.out)
	for _, c := range result.Claims {
		fmt.Fprintf(r.out, "  [%s] %s\n", c.ID, c.Text)
	}
	if len(result.Claims) > 0 {
		fmt.Fprintln(r.out)
	}
	fmt.Fprintf(r.out, "  %s\n", result.Summary)
	for _, reason := range result.Reasons {
		fmt.Fprintf(r.out, "  · %s\n", reason)
	}
	for _, alert := range result.RiskAlerts {
		fmt.Fprintf(r.out, "  ⚠ %s\n", alert)
	}
	fmt.Fprintf(r.out, "  证据: %d 条   识别: %s\n", len(result.Evidences), result.RecognitionProvider)
	fmt.Fprintln(r.out)
}

func (r *Renderer) write(path string, data []byte) error {
	if path == "-" {
		_, err := r.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
