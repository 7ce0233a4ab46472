package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/factlens/internal/llm"
	"github.com/ppiankov/factlens/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"tabs and spaces", "a\t\tb   c\r", "a b c"},
		{"blank lines", "第一行\n\n\n第二行", "第一行\n第二行"},
		{"invisible chars", "高\u200b血\u00a0压", "高血压"},
		{"trim", "  \n text \n ", "text"},
		{"tag-like text kept", "<title>紧急通知</title>明天全城封城", "<title>紧急通知</title>明天全城封城"},
		{"bracketed link kept", "请点击<http://refund.example.com>退款", "请点击<http://refund.example.com>退款"},
		{"not markup", "1 < 2 and 3 > 2", "1 < 2 and 3 > 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeImageMIME(t *testing.T) {
	tests := map[string]string{
		"image/png":  "image/png",
		"IMAGE/PNG":  "image/png",
		"image/jpg":  "image/jpeg",
		"image/jpeg": "image/jpeg",
		"image/webp": "image/webp",
		"image/gif":  "image/jpeg",
		"":           "image/jpeg",
	}
	for in, want := range tests {
		if got := SanitizeImageMIME(in); got != want {
			t.Errorf("SanitizeImageMIME(%q) = %q, want %q", in, got, want)
		}
	}
}

type scriptedCompleter struct {
	replies  []json.RawMessage
	errs     []error
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (json.RawMessage, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	var payload json.RawMessage
	var err error
	if i < len(s.replies) {
		payload = s.replies[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return payload, err
}

func TestRecognize_TextOnly(t *testing.T) {
	completer := &scriptedCompleter{}
	rec := New(completer, nil).Recognize(context.Background(), "  高血压\n\n可以治愈  ", nil, "")

	if rec.Provider != model.ProviderUserText {
		t.Errorf("Expected provider user_text, got %s", rec.Provider)
	}
	if rec.CleanText != "高血压\n可以治愈" || rec.RawText != rec.CleanText {
		t.Errorf("Unexpected text: %+v", rec)
	}
	if rec.Language != model.DefaultLanguage || rec.Note != "" {
		t.Errorf("Unexpected language/note: %+v", rec)
	}
	if len(completer.requests) != 0 {
		t.Error("Expected no completion call without image")
	}
}

func TestRecognize_AngleBracketsKept(t *testing.T) {
	inputs := []string{
		"客服说退款请点击<http://refund.example.com>并输入验证码",
		"如果 a<b 并且 c>d 那么可以马上转账",
		"<title>紧急通知</title>明天全城封城",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			rec := New(nil, nil).Recognize(context.Background(), in, nil, "")
			if rec.Provider != model.ProviderUserText {
				t.Errorf("Expected provider user_text, got %s", rec.Provider)
			}
			if rec.CleanText != in || rec.RawText != in {
				t.Errorf("Expected text kept as typed, got %+v", rec)
			}
		})
	}
}

func TestRecognize_ImageWithoutService(t *testing.T) {
	rec := New(nil, nil).Recognize(context.Background(), "", []byte{0x89, 0x50}, "image/png")
	if rec.Provider != model.ProviderFallbackNoLLM {
		t.Errorf("Expected fallback_no_llm, got %s", rec.Provider)
	}
	if rec.Note != NoteImageUnreadable {
		t.Errorf("Expected unreadable note, got %q", rec.Note)
	}

	rec = New(nil, nil).Recognize(context.Background(), "补充的文字", []byte{0x89}, "image/png")
	if rec.Note != "" || rec.CleanText != "补充的文字" {
		t.Errorf("Expected supplied text without note, got %+v", rec)
	}
}

func TestRecognize_VisionSuccess(t *testing.T) {
	completer := &scriptedCompleter{
		replies: []json.RawMessage{json.RawMessage(`{"raw_text":"截图  文字","clean_text":"截图文字","language":"zh-CN","notes":"x"}`)},
	}
	rec := New(completer, nil).Recognize(context.Background(), "", []byte("img"), "image/jpg")

	if rec.Provider != model.ProviderLLMVision {
		t.Errorf("Expected llm_vision, got %s", rec.Provider)
	}
	if rec.RawText != "截图 文字" || rec.CleanText != "截图文字" {
		t.Errorf("Unexpected text: %+v", rec)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(completer.requests))
	}

	req := completer.requests[0]
	if req.Kind != llm.ModelVision || req.MaxTokens != 320 {
		t.Errorf("Unexpected request kind/max tokens: %s/%d", req.Kind, req.MaxTokens)
	}
	parts := req.Messages[1].Parts
	if len(parts) != 3 {
		t.Fatalf("Expected 3 parts, got %d", len(parts))
	}
	if parts[1].Text != "用户未补充文本。" {
		t.Errorf("Unexpected supplement part %q", parts[1].Text)
	}
	if !strings.HasPrefix(parts[2].ImageURL, "data:image/jpeg;base64,") {
		t.Errorf("Unexpected image url %q", parts[2].ImageURL)
	}
}

func TestRecognize_StrictRetry(t *testing.T) {
	completer := &scriptedCompleter{
		replies: []json.RawMessage{nil, json.RawMessage(`{"raw_text":"第二次","language":""}`)},
		errs:    []error{errors.New("llm: failed to parse JSON response")},
	}
	rec := New(completer, nil).Recognize(context.Background(), "用户文本", []byte("img"), "image/png")

	if len(completer.requests) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(completer.requests))
	}
	if completer.requests[1].MaxTokens != 220 {
		t.Errorf("Expected strict retry budget 220, got %d", completer.requests[1].MaxTokens)
	}
	if completer.requests[1].Messages[1].Parts[1].Text != "用户补充文本：用户文本" {
		t.Errorf("Unexpected supplement part %q", completer.requests[1].Messages[1].Parts[1].Text)
	}
	if rec.Provider != model.ProviderLLMVision || rec.CleanText != "第二次" || rec.Language != model.DefaultLanguage {
		t.Errorf("Unexpected recognition: %+v", rec)
	}
}

func TestRecognize_BothAttemptsFail(t *testing.T) {
	completer := &scriptedCompleter{
		replies: []json.RawMessage{nil, json.RawMessage(`["not","an","object"]`)},
		errs:    []error{&llm.StatusError{StatusCode: 500, Body: "boom"}},
	}
	rec := New(completer, nil).Recognize(context.Background(), "", []byte("img"), "")

	if len(completer.requests) != 2 {
		t.Errorf("Expected 2 requests, got %d", len(completer.requests))
	}
	if rec.Provider != model.ProviderFallbackNoLLM || rec.Note != NoteImageUnreadable {
		t.Errorf("Unexpected fallback recognition: %+v", rec)
	}
}

func TestParseRecognitionPayload_FallbackText(t *testing.T) {
	rec, err := ParseRecognitionPayload(json.RawMessage(`{"raw_text":123}`), " 用户 文本 ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rec.RawText != "用户 文本" || rec.CleanText != "用户 文本" {
		t.Errorf("Expected fallback text, got %+v", rec)
	}

	if _, err := ParseRecognitionPayload(json.RawMessage(`null`), ""); err == nil {
		t.Error("Expected error for null payload")
	}
}
