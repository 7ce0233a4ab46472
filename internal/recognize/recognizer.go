package recognize

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/model"
)

// NoteImageUnreadable is attached when an image could not be read and no text was supplied
const NoteImageUnreadable = "图片已上传，但 LLM 识别暂不可用（未配置或调用失败）。请补充文本后重试。"

// visionPrompt is one way of asking the vision model for text
type visionPrompt struct {
	name      string
	system    string
	task      string
	maxTokens int
}

// visionPrompts are tried in order; the second is stricter and shorter
var visionPrompts = []visionPrompt{
	{
		name:   "full",
		system: "你是一个多模态文本识别助手。请从截图中提取全部可读中文文本，并清理噪声（水印、装饰符号、重复空格）。只返回 JSON。",
		task: "任务：\n1) 提取截图文字到 raw_text（尽可能完整）\n2) 输出 clean_text（适合后续事实核查）\n3) 标注 language（如 zh-CN）\n" +
			"如果看不清，不要编造，用[不清晰]标记。\n可选字段：notes。\n\n" +
			`返回格式：{"raw_text":"...","clean_text":"...","language":"zh-CN"}`,
		maxTokens: 320,
	},
	{
		name:      "strict",
		system:    "你是OCR助手。只允许输出严格 JSON，且仅包含 raw_text、clean_text、language 三个字段。禁止输出其他字段。",
		task:      `仅返回：{"raw_text":"...","clean_text":"...","language":"zh-CN"}。如果无可读文字，raw_text 和 clean_text 返回空字符串。`,
		maxTokens: 220,
	},
}

// Recognizer turns user text and an optional screenshot into normalized text
type Recognizer struct {
	completer llm.Completer // nil when no completion service is configured
	logger    *slog.Logger
}

// New creates a recognizer. A nil completer disables image reading.
func New(completer llm.Completer, logger *slog.Logger) *Recognizer {
	return &Recognizer{
		completer: completer,
		logger:    logging.OrDiscard(logger),
	}
}

// Recognize never fails; degraded paths are reported through Provider and Note.
func (r *Recognizer) Recognize(ctx context.Context, text string, image []byte, mime string) model.Recognition {
	if len(image) == 0 {
		return passthrough(text, false)
	}
	if r.completer == nil {
		r.logger.Debug("image supplied but no completion service configured")
		return passthrough(text, true)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", SanitizeImageMIME(mime), base64.StdEncoding.EncodeToString(image))

	for _, prompt := range visionPrompts {
		payload, err := r.completer.Complete(ctx, llm.Request{
			Kind:        llm.ModelVision,
			Temperature: 0,
			MaxTokens:   prompt.maxTokens,
			Messages: []llm.Message{
				llm.SystemMessage(prompt.system),
				{
					Role: llm.RoleUser,
					Parts: []llm.Part{
						{Text: prompt.task},
						{Text: supplementText(text)},
						{ImageURL: dataURL},
					},
				},
			},
		})
		if err == nil {
			var rec model.Recognition
			rec, err = ParseRecognitionPayload(payload, text)
			if err == nil {
				return rec
			}
		}
		r.logger.Warn("image recognition attempt failed", "prompt", prompt.name, "error", err)
		if ctx.Err() != nil {
			break
		}
	}

	return passthrough(text, true)
}

func supplementText(text string) string {
	if strings.TrimSpace(text) == "" {
		return "用户未补充文本。"
	}
	return "用户补充文本：" + text
}

// passthrough returns the user's own text, normalized
func passthrough(text string, hasImage bool) model.Recognition {
	normalized := Normalize(text)
	rec := model.Recognition{
		RawText:   normalized,
		CleanText: normalized,
		Language:  model.DefaultLanguage,
		Provider:  model.ProviderUserText,
	}
	if hasImage {
		rec.Provider = model.ProviderFallbackNoLLM
		if normalized == "" {
			rec.Note = NoteImageUnreadable
		}
	}
	return rec
}

// ParseRecognitionPayload validates a vision reply. Missing raw_text falls back to
// the supplied text and missing clean_text to raw_text. A payload that is not a JSON
// object is an error.
func ParseRecognitionPayload(payload json.RawMessage, fallbackText string) (model.Recognition, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return model.Recognition{}, fmt.Errorf("decode recognition payload: %w", err)
	}
	if fields == nil {
		return model.Recognition{}, fmt.Errorf("decode recognition payload: not an object")
	}

	raw := stringField(fields, "raw_text")
	if raw == "" {
		raw = fallbackText
	}
	raw = Normalize(raw)

	clean := stringField(fields, "clean_text")
	if clean == "" {
		clean = raw
	}

	language := strings.TrimSpace(stringField(fields, "language"))
	if language == "" {
		language = model.DefaultLanguage
	}

	return model.Recognition{
		RawText:   raw,
		CleanText: Normalize(clean),
		Language:  language,
		Provider:  model.ProviderLLMVision,
	}, nil
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
