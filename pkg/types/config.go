// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds settings for one Generative AI endpoint.
type AIConfig struct {
	// Provider selects the API flavour: "anthropic" or "openai".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens bounds the response length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Timeout bounds a single model call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Enabled reports whether the endpoint is configured well enough to call.
func (c AIConfig) Enabled() bool {
	return c.Provider != "" && c.Model != ""
}

// RefineConfig holds settings for the query refiner.
type RefineConfig struct {
	// UseAI enables the model path; the keyword extractor is always available.
	UseAI bool `json:"use_ai" yaml:"use_ai"`

	// MaxKeywords is the number of tokens kept by the fallback extractor.
	MaxKeywords int `json:"max_keywords" yaml:"max_keywords"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// SearxngURL is the base URL of the SearXNG instance. Empty means a local
	// instance on port 8888.
	SearxngURL string `json:"searxng_url" yaml:"searxng_url"`

	// OverFetchFactor multiplies the requested URL count to size the search limit.
	OverFetchFactor int `json:"over_fetch_factor" yaml:"over_fetch_factor"`

	// MaxResults caps the over-fetch limit.
	MaxResults int `json:"max_results" yaml:"max_results"`

	// RateLimit is the maximum number of backend requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// CacheTTL is how long search results stay cached per query.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// AIQueries enables model-generated fallback queries.
	AIQueries bool `json:"ai_queries" yaml:"ai_queries"`
}

// SelectorConfig holds settings for URL filtering and ranking.
type SelectorConfig struct {
	// ExtraBlocklist adds domains to the built-in blocklist.
	ExtraBlocklist []string `json:"extra_blocklist,omitempty" yaml:"extra_blocklist,omitempty"`

	// DomainBoost enables category-specific domain boosting.
	DomainBoost bool `json:"domain_boost" yaml:"domain_boost"`

	// CuratedInjection splices one known-good URL for the detected category.
	CuratedInjection bool `json:"curated_injection" yaml:"curated_injection"`

	// AIRerank enables model re-ranking of the lexical order.
	AIRerank bool `json:"ai_rerank" yaml:"ai_rerank"`
}

// FetchConfig holds settings for the content fetcher.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BatchSize is the number of URLs fetched concurrently per batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxRetries is the total number of attempts per URL.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BackoffBase is multiplied by the attempt number between attempts.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// MinContentLength is the noise filter: shorter content counts as a failure.
	MinContentLength int `json:"min_content_length" yaml:"min_content_length"`

	// MaxBodyBytes bounds how much of a response body is read.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`

	// LowConfidenceRate is the success rate below which a warning is raised.
	LowConfidenceRate float64 `json:"low_confidence_rate" yaml:"low_confidence_rate"`

	// RateLimit is the maximum number of page requests per second.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// CacheTTL is how long fetched documents stay cached per URL.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// StructureConfig holds settings for the tiered extraction chain.
type StructureConfig struct {
	// Primary is the first model tier.
	Primary AIConfig `json:"primary" yaml:"primary"`

	// AlternateModels are tried in order on the primary's provider.
	AlternateModels []string `json:"alternate_models,omitempty" yaml:"alternate_models,omitempty"`

	// Secondary is the higher-capacity, differently-provisioned tier.
	Secondary AIConfig `json:"secondary" yaml:"secondary"`

	// CorpusBudget is the corpus character budget for primary and alternate tiers.
	CorpusBudget int `json:"corpus_budget" yaml:"corpus_budget"`

	// SecondaryCorpusBudget is the larger budget for the secondary tier.
	SecondaryCorpusBudget int `json:"secondary_corpus_budget" yaml:"secondary_corpus_budget"`

	// WindowOverlap is the number of characters shared by consecutive
	// corpus windows when a corpus exceeds a tier's budget.
	WindowOverlap int `json:"window_overlap" yaml:"window_overlap"`

	// MaxWindows caps the corpus windows one model tier reads.
	MaxWindows int `json:"max_windows" yaml:"max_windows"`

	// Supplement lets later model tiers add rows to a partial result.
	Supplement bool `json:"supplement" yaml:"supplement"`
}

// SessionConfig selects the session artifact store.
type SessionConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `json:"driver" yaml:"driver"`

	// Dir holds the SQLite database file.
	Dir string `json:"dir" yaml:"dir"`

	// DSN is the Postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// ChunkRows is the number of rows per stored output chunk.
	ChunkRows int `json:"chunk_rows" yaml:"chunk_rows"`
}

// OutputConfig holds settings for tabular rendering.
type OutputConfig struct {
	// Delimiter is the single-character field separator.
	Delimiter string `json:"delimiter" yaml:"delimiter"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	LogLevel string `json:"log_level" yaml:"log_level"`

	// DefaultRows is used when a request does not name a row count.
	DefaultRows int `json:"default_rows" yaml:"default_rows"`

	// DefaultURLs is the number of URLs fetched in the initial batch.
	DefaultURLs int `json:"default_urls" yaml:"default_urls"`

	Refine    RefineConfig    `json:"refine" yaml:"refine"`
	Search    SearchConfig    `json:"search" yaml:"search"`
	Selector  SelectorConfig  `json:"selector" yaml:"selector"`
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Structure StructureConfig `json:"structure" yaml:"structure"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Output    OutputConfig    `json:"output" yaml:"output"`
}

const defaultUserAgent = "Mozilla/5.0 (compatible; dataset-engine/0.1)"

// DefaultPipelineConfig returns the configuration used when no file or
// environment override is present.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		LogLevel:    "info",
		DefaultRows: 10,
		DefaultURLs: 5,
		Refine: RefineConfig{
			UseAI:       true,
			MaxKeywords: 4,
		},
		Search: SearchConfig{
			HTTPConfig:      HTTPConfig{Timeout: 20 * time.Second, UserAgent: defaultUserAgent},
			OverFetchFactor: 3,
			MaxResults:      30,
			RateLimit:       2,
			CacheTTL:        5 * time.Minute,
			AIQueries:       true,
		},
		Selector: SelectorConfig{
			DomainBoost:      true,
			CuratedInjection: true,
		},
		Fetch: FetchConfig{
			HTTPConfig:        HTTPConfig{Timeout: 30 * time.Second, UserAgent: defaultUserAgent},
			BatchSize:         5,
			MaxRetries:        3,
			BackoffBase:       time.Second,
			MinContentLength:  200,
			MaxBodyBytes:      4 << 20,
			LowConfidenceRate: 0.2,
			RateLimit:         5,
			CacheTTL:          5 * time.Minute,
		},
		Structure: StructureConfig{
			Primary: AIConfig{
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-5-20250929",
				MaxTokens: 8192,
				Timeout:   120 * time.Second,
			},
			AlternateModels: []string{"claude-haiku-4-5-20251001"},
			Secondary: AIConfig{
				Provider:  "openai",
				Model:     "gpt-4.1",
				MaxTokens: 16384,
				Timeout:   180 * time.Second,
			},
			CorpusBudget:          60000,
			SecondaryCorpusBudget: 200000,
			WindowOverlap:         2000,
			MaxWindows:            8,
		},
		Session: SessionConfig{
			Driver:    "sqlite",
			Dir:       "sessions",
			ChunkRows: 100,
		},
		Output: OutputConfig{
			Delimiter: ",",
		},
	}
}
