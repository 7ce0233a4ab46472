package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/factlens/internal/cache"
	"github.com/ppiankov/factlens/internal/model"
)

// presetBaseURLs are used when no base URL is configured
var presetBaseURLs = map[string]string{
	"dashscope": "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"openai":    "https://api.openai.com/v1",
	"ollama":    "http://localhost:11434/v1",
}

// NewCompleter creates the completion client described by the configuration.
// It returns (nil, nil) when the service is disabled or has no key.
func NewCompleter(cfg model.LLMConfig, store cache.Cache, logger *slog.Logger) (Completer, error) {
	if !cfg.Configured() {
		return nil, nil
	}

	config, err := ConfigFromModel(cfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithLogger(logger)}
	if store != nil {
		opts = append(opts, WithCache(store))
	}

	client, err := NewClient(config, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ConfigFromModel converts model.LLMConfig to llm.Config, resolving the provider preset
func ConfigFromModel(cfg model.LLMConfig) (Config, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "dashscope"
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		preset, ok := presetBaseURLs[provider]
		if !ok {
			return Config{}, fmt.Errorf("unknown LLM provider: %s (supported: dashscope, openai, ollama)", cfg.Provider)
		}
		baseURL = preset
	}

	defaults := DefaultConfig()
	config := Config{
		Provider:           provider,
		APIKey:             cfg.APIKey,
		BaseURL:            strings.TrimSuffix(baseURL, "/"),
		TextModel:          cfg.TextModel,
		VisionModel:        cfg.VisionModel,
		JSONResponseFormat: cfg.JSONResponseFormat,
		Timeout:            cfg.Timeout,
		MaxTokens:          cfg.MaxTokens,
		HTTPProxy:          cfg.HTTPProxy,
		HTTPSProxy:         cfg.HTTPSProxy,
		NoProxy:            cfg.NoProxy,
	}
	if config.TextModel == "" {
		config.TextModel = defaults.TextModel
	}
	if config.VisionModel == "" {
		config.VisionModel = defaults.VisionModel
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	return config, nil
}
