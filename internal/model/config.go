package model

import "time"

// Config is the complete factlens configuration.
// Field tags serve both the YAML file (yaml) and viper (mapstructure).
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Corpus       CorpusConfig       `yaml:"corpus" mapstructure:"corpus"`
	Authority    AuthorityConfig    `yaml:"authority" mapstructure:"authority"`
	Tasks        TaskConfig         `yaml:"tasks" mapstructure:"tasks"`
}

// LLMConfig configures the structured-completion service
type LLMConfig struct {
	Enabled            bool          `yaml:"enabled" mapstructure:"enabled"`
	Provider           string        `yaml:"provider" mapstructure:"provider"` // dashscope, openai, ollama
	APIKey             string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL            string        `yaml:"base_url" mapstructure:"base_url"`
	TextModel          string        `yaml:"text_model" mapstructure:"text_model"`
	VisionModel        string        `yaml:"vision_model" mapstructure:"vision_model"`
	JSONResponseFormat bool          `yaml:"json_response_format" mapstructure:"json_response_format"`
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens          int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy          string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy         string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy            string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// Configured reports whether the completion service may be called.
// A disabled service or a missing key is a normal state, not an error.
func (c LLMConfig) Configured() bool {
	return c.Enabled && c.APIKey != ""
}

// ServerConfig configures the HTTP task API
type ServerConfig struct {
	Port             int    `yaml:"port" mapstructure:"port"`
	BodyLimitBytes   int64  `yaml:"body_limit_bytes" mapstructure:"body_limit_bytes"`
	ImageLimitBytes  int    `yaml:"image_limit_bytes" mapstructure:"image_limit_bytes"`
	DefaultUserID    string `yaml:"default_user_id" mapstructure:"default_user_id"`
	EstimatedWaitMS  int    `yaml:"estimated_wait_ms" mapstructure:"estimated_wait_ms"`
	EnableAdminRoute bool   `yaml:"enable_admin_route" mapstructure:"enable_admin_route"`
}

// CacheConfig configures the completion response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers           int `yaml:"workers" mapstructure:"workers"`
	QueueSize         int `yaml:"queue_size" mapstructure:"queue_size"`
	ValidationWorkers int `yaml:"validation_workers" mapstructure:"validation_workers"`
}

// RateLimitingConfig configures per-key token buckets
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CorpusConfig points at an optional replacement evidence corpus
type CorpusConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty = embedded default corpus
}

// AuthorityConfig drives source-URL credibility classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// TaskConfig configures the in-memory task store
type TaskConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Enabled:            true,
			Provider:           "dashscope",
			BaseURL:            "", // resolved from the provider preset
			TextModel:          "qwen-plus-latest",
			VisionModel:        "qwen-vl-ocr-latest",
			JSONResponseFormat: true,
			Timeout:            30 * time.Second,
			MaxTokens:          1000,
		},
		Server: ServerConfig{
			Port:             3300,
			BodyLimitBytes:   12 << 20,
			ImageLimitBytes:  10 << 20,
			DefaultUserID:    "guest",
			EstimatedWaitMS:  1200,
			EnableAdminRoute: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:           4,
			QueueSize:         64,
			ValidationWorkers: 8,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gov.cn", "chinacdc.cn",
			},
			SecondaryDomains: []string{
				"who.int", "people.com.cn", "xinhuanet.com", "cctv.com",
			},
		},
		Tasks: TaskConfig{
			TTL:             24 * time.Hour,
			CleanupInterval: 10 * time.Minute,
		},
	}
}
