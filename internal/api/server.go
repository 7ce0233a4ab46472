// Package api exposes the asynchronous analysis service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/task"
	"github.com/ppiankov/factlens/internal/worker"
)

// Analyzer is the pipeline as seen by the HTTP layer
type Analyzer interface {
	Analyze(ctx context.Context, in model.Input) (*model.AnalysisResult, error)
	Preview(ctx context.Context, in model.Input) (*model.Preview, error)
}

// Options are the collaborators of a Server
type Options struct {
	Config     model.ServerConfig
	Analyzer   Analyzer
	Tasks      *task.Store
	Pool       *worker.Pool    // must be started by the caller
	Limiter    *worker.Limiter // nil disables rate limiting
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Server serves the task API
type Server struct {
	cfg        model.ServerConfig
	analyzer   Analyzer
	tasks      *task.Store
	pool       *worker.Pool
	limiter    *worker.Limiter
	jobTimeout time.Duration
	sanitizer  *bluemonday.Policy
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a server
func New(opts Options) *Server {
	cfg := opts.Config
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "guest"
	}

	return &Server{
		cfg:        cfg,
		analyzer:   opts.Analyzer,
		tasks:      opts.Tasks,
		pool:       opts.Pool,
		limiter:    opts.Limiter,
		jobTimeout: opts.JobTimeout,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logging.OrDiscard(opts.Logger),
		now:        time.Now,
	}
}

// Router builds the gin engine with all routes attached
func (s *Server) Router() *gin.Engine {
	g := gin.New()
	g.Use(s.requestLogger(), gin.CustomRecovery(s.recover))
	g.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", headerUserID},
		MaxAge:          12 * time.Hour,
	}))
	g.Use(s.bodyLimit(), s.userID())

	g.GET("/health", s.health)

	v1 := g.Group("/v1")
	{
		v1.POST("/analyze", s.submitAnalysis)
		v1.GET("/analyze/:taskId", s.getTask)
		v1.POST("/ocr-preview", s.preview)
		v1.POST("/feedback", s.addFeedback)
	}
	if s.cfg.EnableAdminRoute {
		v1.GET("/admin/feedback", s.listFeedback)
	}

	return g
}

// Run serves on addr until ctx is done, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("factlens api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"user_id", c.GetString(ctxUserID),
			"duration", time.Since(start))
	}
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.logger.Error("handler panicked", "path", c.FullPath(), "panic", recovered)
	message := "未知异常"
	if err, ok := recovered.(error); ok {
		message = err.Error()
	}
	abortWithError(c, http.StatusInternalServerError, CodeInternal, message)
}

func (s *Server) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.BodyLimitBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.BodyLimitBytes)
		}
		c.Next()
	}
}

func (s *Server) userID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerUserID)
		if id == "" {
			id = s.cfg.DefaultUserID
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// allow applies the per-user rate limit
func (s *Server) allow(c *gin.Context) bool {
	if s.limiter == nil || s.limiter.Allow(c.GetString(ctxUserID)) {
		return true
	}
	abortWithError(c, http.StatusTooManyRequests, CodeRateLimited, "请求过于频繁，请稍后再试")
	return false
}
