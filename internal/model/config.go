package model

import "time"

// Config is the complete plangrade configuration
type Config struct {
	Registry   RegistryConfig  `json:"registry" yaml:"registry"`
	LLM        LLMConfig       `json:"llm" yaml:"llm"`
	Batch      BatchConfig     `json:"batch" yaml:"batch"`
	Thresholds ThresholdConfig `json:"thresholds" yaml:"thresholds"`
	Cache      CacheConfig     `json:"cache" yaml:"cache"`
	RateLimit  RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	Output     OutputConfig    `json:"output" yaml:"output"`
}

// RegistryConfig locates the taxonomy registry
type RegistryConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // Empty = embedded default
}

// LLMConfig holds oracle provider configuration
type LLMConfig struct {
	Provider   string        `json:"provider" yaml:"provider"` // "openai", "ollama"
	Model      string        `json:"model" yaml:"model"`
	APIKey     string        `json:"-" yaml:"-"` // From env only, never serialized
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
}

// BatchConfig controls the staged orchestrator
type BatchConfig struct {
	StageSize     int    `json:"stage_size" yaml:"stage_size"`
	Workers       int    `json:"workers" yaml:"workers"`
	OutputDir     string `json:"output_dir" yaml:"output_dir"`
	CheckpointDir string `json:"checkpoint_dir" yaml:"checkpoint_dir"`
}

// ThresholdConfig holds the verdict cutoffs
type ThresholdConfig struct {
	Structural float64 `json:"structural" yaml:"structural"`
	Grounding  float64 `json:"grounding" yaml:"grounding"`
}

// CacheConfig controls the oracle response cache
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Dir       string        `json:"dir" yaml:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl"`
}

// RateLimitConfig bounds the oracle call rate
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Batch: BatchConfig{
			StageSize:     50,
			Workers:       5,
			OutputDir:     "./plangrade-stages",
			CheckpointDir: "./plangrade-stages",
		},
		Thresholds: ThresholdConfig{
			Structural: 0.75,
			Grounding:  0.75,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".plangrade-cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
	}
}
