package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all AlphaSentinel settings
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding" mapstructure:"embedding"`
	Index        IndexConfig        `yaml:"index" mapstructure:"index"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" mapstructure:"retrieval"`
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Adjudication AdjudicationConfig `yaml:"adjudication" mapstructure:"adjudication"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the generation capability
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, gemini, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	JSONMode  bool   `yaml:"json_mode" mapstructure:"json_mode"` // Ask for structured output where supported
}

// EmbeddingConfig configures the embedding capability
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, gemini, ollama
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout  int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// IndexConfig controls passage splitting and index build
type IndexConfig struct {
	ChunkSize      int `yaml:"chunk_size" mapstructure:"chunk_size"`       // Max passage length in characters
	ChunkOverlap   int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"` // Shared characters between neighbours
	EmbedBatchSize int `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
}

// RetrievalConfig controls evidence lookup per claim
type RetrievalConfig struct {
	TopK   int  `yaml:"top_k" mapstructure:"top_k"`
	Hybrid bool `yaml:"hybrid" mapstructure:"hybrid"` // Fuse BM25 with vector ranking
}

// ExtractionConfig controls claim extraction
type ExtractionConfig struct {
	MaxTranscriptChars int `yaml:"max_transcript_chars" mapstructure:"max_transcript_chars"`
	MaxClaims          int `yaml:"max_claims" mapstructure:"max_claims"`
}

// AdjudicationConfig controls claim adjudication
type AdjudicationConfig struct {
	SnippetLength     int `yaml:"snippet_length" mapstructure:"snippet_length"`
	Workers           int `yaml:"workers" mapstructure:"workers"`
	HighRiskThreshold int `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
}

// CacheConfig configures the embedding cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig throttles provider calls
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// HTTPConfig is used when the filing is fetched from a URL
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose        bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter  bool `yaml:"include_footer" mapstructure:"include_footer"`
	IncludeRawText bool `yaml:"include_raw_text" mapstructure:"include_raw_text"` // Keep raw model output in JSON
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			Timeout:   60,
			MaxTokens: 1000,
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
			Timeout:  60,
		},
		Index: IndexConfig{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			EmbedBatchSize: 64,
		},
		Retrieval: RetrievalConfig{
			TopK: 2,
		},
		Extraction: ExtractionConfig{
			MaxTranscriptChars: 15000,
			MaxClaims:          3,
		},
		Adjudication: AdjudicationConfig{
			SnippetLength:     200,
			Workers:           1,
			HighRiskThreshold: 5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		HTTP: HTTPConfig{
			Timeout:       time.Minute,
			UserAgent:     "AlphaSentinel/0.1 (+https://github.com/ppiankov/alphasentinel)",
			MaxBodyBytes:  50_000_000,
			RespectRobots: true,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks the settings the core depends on
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap must be in [0, %d), got %d", c.Index.ChunkSize, c.Index.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Extraction.MaxTranscriptChars <= 0 {
		return fmt.Errorf("extraction.max_transcript_chars must be positive, got %d", c.Extraction.MaxTranscriptChars)
	}
	if c.Extraction.MaxClaims <= 0 {
		return fmt.Errorf("extraction.max_claims must be positive, got %d", c.Extraction.MaxClaims)
	}
	if c.Adjudication.SnippetLength < 0 {
		return fmt.Errorf("adjudication.snippet_length must not be negative, got %d", c.Adjudication.SnippetLength)
	}
	return nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "alphasentinel-cache")
	}
	return filepath.Join(home, ".alphasentinel", "cache")
}
