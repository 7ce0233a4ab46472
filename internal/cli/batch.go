package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/pipeline"
	"github.com/ppiankov/factlens/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchLine is one JSON line of batch output
type batchLine struct {
	Index  int         `json:"index"`
	Text   string      `json:"text"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many messages from a file in parallel",
	Long: `Batch analyzes messages concurrently:
- Read messages from the input file (one per line, # starts a comment)
- Drop blank lines and duplicates
- Analyze messages in parallel with a configurable worker count
- Throttle calls to the completion service per host
- Write one JSON line per message, in input order

Example:
  factlens batch messages.txt
  factlens batch messages.txt --concurrency 8 --output results.jsonl
  factlens batch messages.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "-", "JSON lines output path (- for stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  FactLens Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", batchOutput)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)

	p, err := pipeline.NewPipeline(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	// Throttle per completion host; rule-based runs are local and unthrottled
	if p.LLMEnabled() && cfg.RateLimiting.RequestsPerSecond > 0 {
		llmCfg, err := llm.ConfigFromModel(cfg.LLM)
		if err != nil {
			return err
		}
		key, err := worker.HostKey(llmCfg.BaseURL)
		if err != nil {
			return fmt.Errorf("rate limit key: %w", err)
		}
		processor.WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize), key)
		fmt.Fprintf(os.Stderr, "  LLM:          %s (%.1f req/s)\n", key, cfg.RateLimiting.RequestsPerSecond)
	}
	fmt.Fprintf(os.Stderr, "\n")

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing messages with %d workers...\n", concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out := cmd.OutOrStdout()
	if batchOutput != "-" {
		f, createErr := os.Create(batchOutput)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		out = f
	}

	successCount, failureCount, err := writeBatchResults(out, results)
	if err != nil {
		return err
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d messages\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeBatchResults writes one JSON line per result and reports per-message progress on stderr
func writeBatchResults(w io.Writer, results []*worker.TextResult) (success, failure int, err error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, r := range results {
		line := batchLine{Index: r.Index, Text: r.Text}
		if r.Error != nil {
			failure++
			line.Error = r.Error.Error()
			fmt.Fprintf(os.Stderr, "✗ #%d: %v\n", r.Index+1, r.Error)
		} else {
			success++
			line.Result = r.Result
			fmt.Fprintf(os.Stderr, "✓ #%d: %s (%d/100)\n", r.Index+1, r.Result.Label, r.Result.Score)
		}
		if err := enc.Encode(line); err != nil {
			return success, failure, fmt.Errorf("write result: %w", err)
		}
	}
	return success, failure, nil
}
