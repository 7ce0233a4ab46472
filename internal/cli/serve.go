package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factlens/internal/api"
	"github.com/ppiankov/factlens/internal/pipeline"
	"github.com/ppiankov/factlens/internal/task"
	"github.com/ppiankov/factlens/internal/worker"
)

var (
	servePort    int
	serveWorkers int
	serveQueue   int
	jobTimeout   time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the asynchronous analysis HTTP API",
	Long: `Serve exposes the task API:

  GET  /health
  POST /v1/analyze            submit text or an image, returns a task id
  GET  /v1/analyze/:taskId    poll a task
  POST /v1/ocr-preview        synchronous recognition + claim preview
  POST /v1/feedback           report a problem with a result
  GET  /v1/admin/feedback     list feedback

Example:
  factlens serve
  factlens serve --port 8080 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default from config, 3300)")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "analysis workers (default from config)")
	serveCmd.Flags().IntVar(&serveQueue, "queue", 0, "pending task capacity (default from config)")
	serveCmd.Flags().DurationVar(&jobTimeout, "job-timeout", 2*time.Minute, "deadline for a single analysis")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveWorkers > 0 {
		cfg.Concurrency.Workers = serveWorkers
	}
	if serveQueue > 0 {
		cfg.Concurrency.QueueSize = serveQueue
	}

	logger := newLogger()

	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	pool := worker.NewPool(cfg.Concurrency.Workers, cfg.Concurrency.QueueSize).
		OnResult(func(worker.Result) {}).
		WithLogger(logger)
	pool.Start()

	var limiter *worker.Limiter
	if cfg.RateLimiting.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	}

	server := api.New(api.Options{
		Config:     cfg.Server,
		Analyzer:   p,
		Tasks:      task.NewStore(cfg.Tasks.TTL, cfg.Tasks.CleanupInterval),
		Pool:       pool,
		Limiter:    limiter,
		JobTimeout: jobTimeout,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting factlens",
		"version", Version,
		"llm", p.LLMEnabled(),
		"workers", cfg.Concurrency.Workers,
		"queue", cfg.Concurrency.QueueSize)

	runErr := server.Run(ctx, fmt.Sprintf(":%d", cfg.Server.Port))

	logger.Info("draining queued analyses", "pending", pool.Pending())
	pool.Wait()
	return runErr
}
