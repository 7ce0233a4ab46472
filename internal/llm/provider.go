package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the completion service is disabled or has no key.
// Callers treat it as a routing signal, not a failure.
var ErrNotConfigured = errors.New("llm: completion service not configured")

// Completer issues chat-style requests and returns the reply as a JSON document
type Completer interface {
	// Complete sends the request and returns the JSON payload extracted from the reply.
	// Transport failures, non-2xx replies and unparseable content all return an error.
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// ModelKind selects which configured model serves a request
type ModelKind string

const (
	ModelText   ModelKind = "text"
	ModelVision ModelKind = "vision"
)

// Request is a provider-neutral chat completion request
type Request struct {
	Kind        ModelKind
	Temperature float32
	MaxTokens   int // 0 = client default
	Messages    []Message
}

// Message is one chat turn; a message either carries Text or Parts
type Message struct {
	Role  string
	Text  string
	Parts []Part
}

// Part is one element of a multi-part (vision) message
type Part struct {
	Text     string
	ImageURL string // data: URL or https URL
}

// Chat roles
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// SystemMessage builds a plain system turn
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// UserMessage builds a plain user turn
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// Config holds completion client configuration
type Config struct {
	// Provider preset: "dashscope", "openai", "ollama"
	Provider string

	APIKey  string
	BaseURL string

	TextModel   string
	VisionModel string

	// JSONResponseFormat requests strict JSON mode; on failure the client retries once without it
	JSONResponseFormat bool

	Timeout   time.Duration
	MaxTokens int

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:           "dashscope",
		TextModel:          "qwen-plus-latest",
		VisionModel:        "qwen-vl-ocr-latest",
		JSONResponseFormat: true,
		Timeout:            30 * time.Second,
		MaxTokens:          1000,
	}
}

// model picks the model id for a request kind
func (c Config) model(kind ModelKind) string {
	if kind == ModelVision && c.VisionModel != "" {
		return c.VisionModel
	}
	return c.TextModel
}

// StatusError reports a non-2xx reply from the completion service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm request failed(%d): %s", e.StatusCode, e.Body)
}

const maxErrorBody = 200

func truncateBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= maxErrorBody {
		return body
	}
	// keep the cut on a rune boundary
	cut := maxErrorBody
	for cut > 0 && !isRuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
