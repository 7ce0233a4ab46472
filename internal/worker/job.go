package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
)

// ErrCodeInternal is recorded on a task whose job panicked
const ErrCodeInternal = "INTERNAL_ERROR"

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, in model.Input) (*model.AnalysisResult, error)
}

// TaskRecorder receives task state transitions
type TaskRecorder interface {
	MarkProcessing(id string) error
	Finish(id string, result *model.AnalysisResult) error
	Fail(id string, message string) error
}

// AnalyzeJob runs the pipeline for one queued task and records the outcome
type AnalyzeJob struct {
	TaskID   string
	Input    model.Input
	Analyzer Analyzer
	Tasks    TaskRecorder
	Timeout  time.Duration // zero means no per-job deadline
	Logger   *slog.Logger
}

// AnalyzeResult is the outcome of an AnalyzeJob
type AnalyzeResult struct {
	TaskID string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the analysis error
func (r *AnalyzeResult) GetError() error {
	return r.Error
}

// Execute marks the task processing, analyses and finishes or fails it.
// A panic fails the task with ErrCodeInternal.
func (j *AnalyzeJob) Execute(ctx context.Context) (res Result) {
	logger := logging.OrDiscard(j.Logger).With("task_id", j.TaskID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis panicked", "panic", r)
			if err := j.Tasks.Fail(j.TaskID, ErrCodeInternal); err != nil {
				logger.Warn("record task failure", "error", err)
			}
			res = &PanicResult{Value: r}
		}
	}()

	if err := j.Tasks.MarkProcessing(j.TaskID); err != nil {
		logger.Warn("mark task processing", "error", err)
		return &AnalyzeResult{TaskID: j.TaskID, Error: err}
	}

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := j.Analyzer.Analyze(ctx, j.Input)
	if err != nil {
		logger.Warn("analysis failed", "error", err)
		if failErr := j.Tasks.Fail(j.TaskID, err.Error()); failErr != nil {
			logger.Warn("record task failure", "error", failErr)
		}
		return &AnalyzeResult{TaskID: j.TaskID, Error: err}
	}

	if err := j.Tasks.Finish(j.TaskID, result); err != nil {
		logger.Warn("record task result", "error", err)
		return &AnalyzeResult{TaskID: j.TaskID, Error: err}
	}

	logger.Info("analysis done", "label", result.Label, "score", result.Score, "duration", time.Since(start))
	return &AnalyzeResult{TaskID: j.TaskID, Result: result}
}
