package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/logging"
	"github.com/ppiankov/factlens/internal/util"
	"github.com/sashabaranov/go-openai"
)

// Client implements Completer against any OpenAI-compatible chat completions endpoint
type Client struct {
	client *openai.Client
	config Config
	cache  cache.Cache // optional; nil disables caching
	logger *slog.Logger
}

// Option customizes the client
type Option func(*Client)

// WithCache stores successfully parsed replies keyed by the request payload
func WithCache(c cache.Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithLogger sets the logger used for retry and cache diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a completion client; the API key is required
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("llm: base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1000
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		},
	}

	c := &Client{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger)
	return c, nil
}

// Complete sends the request in strict JSON mode when configured and, if that
// attempt fails for any reason other than caller cancellation, retries once without it.
func (c *Client) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	strict := c.config.JSONResponseFormat

	payload, err := c.complete(ctx, req, strict)
	if err == nil || !strict || ctx.Err() != nil {
		return payload, err
	}

	c.logger.Debug("retrying completion without strict JSON mode", "kind", req.Kind, "error", err)
	return c.complete(ctx, req, false)
}

func (c *Client) complete(ctx context.Context, req Request, strict bool) (json.RawMessage, error) {
	chatReq := c.buildRequest(req, strict)

	var key string
	if c.cache != nil {
		if encoded, err := json.Marshal(chatReq); err == nil {
			key = cache.CacheKey(string(req.Kind), encoded)
			if hit, ok := c.cache.Get(key); ok {
				c.logger.Debug("completion cache hit", "kind", req.Kind)
				return json.RawMessage(hit), nil
			}
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm: no choices in response")
	}

	payload, err := ExtractJSON(messageText(resp.Choices[0].Message))
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := c.cache.Set(key, payload, 0); err != nil {
			c.logger.Warn("completion cache write failed", "error", err)
		}
	}
	return payload, nil
}

func (c *Client) buildRequest(req Request, strict bool) openai.ChatCompletionRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	// go-openai omits a zero temperature, which servers read as their default
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.config.model(req.Kind),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if strict {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{Role: m.Role}
		if len(m.Parts) == 0 {
			msg.Content = m.Text
		} else {
			for _, p := range m.Parts {
				if p.ImageURL != "" {
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL},
					})
					continue
				}
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		}
		chatReq.Messages = append(chatReq.Messages, msg)
	}

	return chatReq
}

// messageText flattens string or multi-part reply content into text
func messageText(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" {
		return msg.Content
	}
	var parts []string
	for _, p := range msg.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// wrapAPIError surfaces HTTP failures as *StatusError
func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: truncateBody(apiErr.Message)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: truncateBody(body)}
	}
	return fmt.Errorf("llm request: %w", err)
}
