package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/factlens/internal/model"
	"github.com/ppiankov/factlens/internal/task"
	"github.com/ppiankov/factlens/internal/worker"
)

type analyzeRequest struct {
	Text              string   `json:"text"`
	ImageBase64       string   `json:"image_base64"`
	ImageMIME         string   `json:"image_mime"`
	CleanTextOverride string   `json:"clean_text_override"`
	ClaimOverrides    []string `json:"claim_overrides"`

	// PrimaryClaimIndex is kept raw so that a fraction or a string selects no claim instead of failing the request
	PrimaryClaimIndex json.RawMessage `json:"primary_claim_index"`
}

type feedbackRequest struct {
	ResultID string `json:"result_id"`
	Type     string `json:"type"`
	Comment  string `json:"comment"`
}

type taskView struct {
	TaskID    string                `json:"task_id"`
	Status    task.Status           `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Error     *string               `json:"error"`
	Result    *model.AnalysisResult `json:"result"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"now":    s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) submitAnalysis(c *gin.Context) {
	in, ok := s.bindInput(c)
	if !ok || !s.allow(c) {
		return
	}

	inputType := task.InputText
	if in.HasImage() {
		inputType = task.InputImage
	}
	created := s.tasks.Create(inputType, c.GetString(ctxUserID))

	err := s.pool.TrySubmit(&worker.AnalyzeJob{
		TaskID:   created.ID,
		Input:    in,
		Analyzer: s.analyzer,
		Tasks:    s.tasks,
		Timeout:  s.jobTimeout,
		Logger:   s.logger,
	})
	if err != nil {
		s.logger.Warn("analysis not queued", "task_id", created.ID, "error", err)
		_ = s.tasks.Fail(created.ID, CodeQueueFull)
		abortWithError(c, http.StatusServiceUnavailable, CodeQueueFull, "服务繁忙，请稍后再试")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":           created.ID,
		"status":            created.Status,
		"estimated_wait_ms": s.cfg.EstimatedWaitMS,
	})
}

func (s *Server) getTask(c *gin.Context) {
	t, ok := s.tasks.Get(c.Param("taskId"))
	if !ok {
		abortWithError(c, http.StatusNotFound, CodeTaskNotFound, "任务不存在")
		return
	}

	view := taskView{
		TaskID:    t.ID,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Result:    t.Result,
	}
	if t.Error != "" {
		view.Error = &t.Error
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) preview(c *gin.Context) {
	in, ok := s.bindInput(c)
	if !ok || !s.allow(c) {
		return
	}

	preview, err := s.analyzer.Preview(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) addFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return
	}

	resultID := strings.TrimSpace(req.ResultID)
	kind := strings.TrimSpace(req.Type)
	if resultID == "" || kind == "" {
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "result_id 和 type 为必填字段")
		return
	}

	fb := s.tasks.AddFeedback(resultID, kind, s.sanitizer.Sanitize(req.Comment), c.GetString(ctxUserID))
	c.JSON(http.StatusCreated, gin.H{
		"ok":       true,
		"feedback": fb,
	})
}

func (s *Server) listFeedback(c *gin.Context) {
	list := s.tasks.Feedback()
	c.JSON(http.StatusOK, gin.H{
		"total": len(list),
		"list":  list,
	})
}

// bindInput decodes and validates an analysis request, writing the error response on failure
func (s *Server) bindInput(c *gin.Context) (model.Input, bool) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.bindError(c, err)
		return model.Input{}, false
	}

	in := model.Input{
		Text:              req.Text,
		ImageMIME:         req.ImageMIME,
		CleanTextOverride: req.CleanTextOverride,
		ClaimOverrides:    req.ClaimOverrides,
		PrimaryClaimIndex: primaryIndex(req.PrimaryClaimIndex),
	}

	if encoded := strings.TrimSpace(req.ImageBase64); encoded != "" {
		image, mime, err := decodeImage(encoded)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "image_base64 不是有效的 base64 编码")
			return model.Input{}, false
		}
		if s.cfg.ImageLimitBytes > 0 && len(image) > s.cfg.ImageLimitBytes {
			abortWithError(c, http.StatusRequestEntityTooLarge, CodeImageTooLarge,
				fmt.Sprintf("图片超过 %dMB，请压缩后重试", s.cfg.ImageLimitBytes>>20))
			return model.Input{}, false
		}
		in.Image = image
		if in.ImageMIME == "" {
			in.ImageMIME = mime
		}
	}

	if !hasContent(in) {
		abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "text 或 image_base64 至少提供一个")
		return model.Input{}, false
	}
	return in, true
}

func (s *Server) bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortWithError(c, http.StatusRequestEntityTooLarge, CodeImageTooLarge,
			fmt.Sprintf("请求体超过 %dMB，请压缩图片后重试", tooLarge.Limit>>20))
		return
	}
	abortWithError(c, http.StatusBadRequest, CodeInvalidInput, "请求体不是有效的 JSON")
}

// hasContent reports whether anything analysable was supplied
// primaryIndex returns raw as an int when it is an integral JSON number and 0 otherwise
func primaryIndex(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func hasContent(in model.Input) bool {
	if strings.TrimSpace(in.Text) != "" || in.HasImage() || strings.TrimSpace(in.CleanTextOverride) != "" {
		return true
	}
	for _, claim := range in.ClaimOverrides {
		if strings.TrimSpace(claim) != "" {
			return true
		}
	}
	return false
}

// decodeImage accepts raw base64 or a data URL and returns the bytes and any declared MIME type
func decodeImage(encoded string) ([]byte, string, error) {
	var mime string
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data url")
		}
		mime, _, _ = strings.Cut(header, ";")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, mime, nil
}
