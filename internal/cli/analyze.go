package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/pipeline"
	"github.com/ppiankov/factlens/internal/recognize"
)

const (
	userAgent     = "FactLens/0.1 (+https://github.com/ppiankov/factlens)"
	maxPageBytes  = 2_000_000
	maxImageBytes = 10 << 20
)

var (
	textFile       string
	pageURL        string
	imagePath      string
	imageMIME      string
	cleanText      string
	overrideClaims []string
	primaryClaim   int
	outJSON        string
	outMD          string
	timeout        time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze a message, a screenshot or a web page",
	Long: `Analyze runs the full pipeline synchronously:
- Recognize text (vision model for images, markup stripping for pages)
- Extract up to three verifiable claims
- Match claims against the evidence corpus
- Score each claim and aggregate a verdict
- Explain the verdict with reasons, risk alerts and next steps

Example:
  factlens analyze "高血压可以靠吃芹菜治愈"
  factlens analyze --image screenshot.png --json result.json
  factlens analyze --url https://example.com/post --md report.md
  factlens analyze --override-claim "收到验证码后请转账" --override-claim "官方宣布新规" --primary 1`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Input flags
	analyzeCmd.Flags().StringVar(&textFile, "text-file", "", "read the message text from a file")
	analyzeCmd.Flags().StringVar(&pageURL, "url", "", "fetch a web page and analyze its text")
	analyzeCmd.Flags().StringVar(&imagePath, "image", "", "screenshot to recognize")
	analyzeCmd.Flags().StringVar(&imageMIME, "image-mime", "", "image MIME type (detected when empty)")
	analyzeCmd.Flags().StringVar(&cleanText, "clean-text", "", "confirmed text, skips recognition")
	analyzeCmd.Flags().StringArrayVar(&overrideClaims, "override-claim", nil, "confirmed claim, skips extraction (repeatable)")
	analyzeCmd.Flags().IntVar(&primaryClaim, "primary", 0, "index of the claim to promote to first position")

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall analysis timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in, err := buildInput(ctx, cfg, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Analyzing (LLM: %v, timeout: %v)\n", p.LLMEnabled(), timeout)
	}

	result, err := p.Analyze(ctx, in)
	if err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	if outJSON != "" {
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose && outJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(result, outMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose && outMD != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
		}
	}

	if outJSON != "-" && outMD != "-" {
		renderer.RenderSummary(result)
	}
	return nil
}

// buildInput assembles the pipeline input from arguments and flags
func buildInput(ctx context.Context, cfg *model.Config, args []string) (model.Input, error) {
	in := model.Input{
		Text:              strings.Join(args, " "),
		CleanTextOverride: cleanText,
		ClaimOverrides:    overrideClaims,
		PrimaryClaimIndex: primaryClaim,
	}

	sources := 0
	for _, set := range []bool{len(args) > 0, textFile != "", pageURL != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return in, errors.New("use only one of: text argument, --text-file, --url")
	}

	switch {
	case textFile != "":
		data, err := os.ReadFile(textFile)
		if err != nil {
			return in, fmt.Errorf("read text file: %w", err)
		}
		in.Text = string(data)
	case pageURL != "":
		fetcher := pipeline.NewFetcher(30*time.Second, userAgent, maxPageBytes, cfg.LLM.HTTPProxy, cfg.LLM.HTTPSProxy, cfg.LLM.NoProxy)
		page, err := fetcher.FetchWithRetry(ctx, pageURL)
		if err != nil {
			return in, fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		text, adapter, err := recognize.NewPageRegistry().PageText(page.Body, page.FinalURL, page.ContentType)
		if err != nil {
			return in, err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Fetched %s (%s adapter, %d chars)\n", page.FinalURL, adapter, len([]rune(text)))
		}
		in.Text = text
	}

	if imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return in, fmt.Errorf("read image: %w", err)
		}
		if len(data) > maxImageBytes {
			return in, fmt.Errorf("image exceeds %dMB", maxImageBytes>>20)
		}
		in.Image = data
		in.ImageMIME = imageMIME
		if in.ImageMIME == "" {
			in.ImageMIME = http.DetectContentType(data)
		}
	}

	if strings.TrimSpace(in.Text) == "" && !in.HasImage() && strings.TrimSpace(in.CleanTextOverride) == "" && !hasClaimOverride(in.ClaimOverrides) {
		return in, errors.New("nothing to analyze: pass text, --text-file, --url, --image, --clean-text or --override-claim")
	}
	return in, nil
}

func hasClaimOverride(claims []string) bool {
	for _, claim := range claims {
		if strings.TrimSpace(claim) != "" {
			return true
		}
	}
	return false
}
