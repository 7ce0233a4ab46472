package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/factlens/internal/model"
)

// TextJob analyses one line of a batch
type TextJob struct {
	Index    int
	Text     string
	Analyzer Analyzer
	Limiter  *Limiter // optional, shared across the batch
	LimitKey string
}

// Execute executes the analysis, waiting for the limiter first
func (j *TextJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, j.LimitKey); err != nil {
			return &TextResult{Index: j.Index, Text: j.Text, Error: fmt.Errorf("rate limit: %w", err)}
		}
	}

	result, err := j.Analyzer.Analyze(ctx, model.Input{Text: j.Text})
	return &TextResult{Index: j.Index, Text: j.Text, Result: result, Error: err}
}

// TextResult represents the result of a batch line
type TextResult struct {
	Index  int
	Text   string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the error from the analysis
func (r *TextResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses many texts concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
	limitKey    string
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// WithLimiter throttles every job of the batch under a single key
func (b *BatchProcessor) WithLimiter(limiter *Limiter, key string) *BatchProcessor {
	b.limiter = limiter
	b.limitKey = key
	return b
}

// ProcessTexts analyses the texts and returns results in input order
func (b *BatchProcessor) ProcessTexts(ctx context.Context, texts []string) []*TextResult {
	results := make([]*TextResult, len(texts))
	if len(texts) == 0 {
		return results
	}

	pool := NewPoolWithContext(ctx, b.concurrency, len(texts))
	pool.OnResult(func(r Result) {
		if res, ok := r.(*TextResult); ok {
			results[res.Index] = res
		}
	})
	pool.Start()

	for i, text := range texts {
		if err := pool.Submit(&TextJob{
			Index:    i,
			Text:     text,
			Analyzer: b.analyzer,
			Limiter:  b.limiter,
			LimitKey: b.limitKey,
		}); err != nil {
			results[i] = &TextResult{Index: i, Text: text, Error: err}
		}
	}

	pool.Wait()

	for i, res := range results {
		if res != nil {
			continue
		}
		// cancelled before the job ran, or the job panicked
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("analysis aborted: %s", ErrCodeInternal)
		}
		results[i] = &TextResult{Index: i, Text: texts[i], Error: err}
	}
	return results
}

// ProcessFile reads texts from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*TextResult, error) {
	texts, err := ReadLinesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read texts: %w", err)
	}

	return b.ProcessTexts(ctx, texts), nil
}

// ReadLinesFromFile reads one text per line, skipping blanks and # comments
// and dropping duplicates
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
