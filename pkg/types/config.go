package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "plasma-kg/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CollectConfig holds settings for the paper collection stage.
type CollectConfig struct {
	HTTPConfig `yaml:",inline"`

	// Category is the arXiv category to collect from (default "physics.plasm-ph").
	Category string `json:"category" yaml:"category"`

	// MaxResults is the number of papers to collect (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PageSize is the number of entries requested per arXiv API call (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// FlushEvery is how many papers to accumulate before writing to the
	// catalog (default 10). Interrupted runs keep everything flushed so far.
	FlushEvery int `json:"flush_every" yaml:"flush_every"`

	// Filter drops papers whose abstracts show no sign of numeric
	// parameters before they reach the catalog.
	Filter bool `json:"filter" yaml:"filter"`
}

// OracleConfig holds shared settings for stages that call a Generative AI API.
type OracleConfig struct {
	// Model is the AI model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Disabled skips the oracle entirely so only the pattern stage runs.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// CatalogConfig holds settings for the SQLite paper catalog.
type CatalogConfig struct {
	// Path is the catalog database file (default "data/catalog.db").
	Path string `json:"path" yaml:"path"`
}

// FusekiConfig holds connection settings for the Fuseki triple store.
type FusekiConfig struct {
	HTTPConfig `yaml:",inline"`

	// QueryEndpoint is the SPARQL query endpoint
	// (default "http://localhost:3030/plasma/sparql").
	QueryEndpoint string `json:"query_endpoint" yaml:"query_endpoint"`

	// DataEndpoint is the Graph Store Protocol endpoint used to load
	// Turtle data (default "http://localhost:3030/plasma/data").
	DataEndpoint string `json:"data_endpoint" yaml:"data_endpoint"`

	// Username and Password are optional basic-auth credentials.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr"`

	// CacheEnabled controls response caching for read endpoints (default true).
	CacheEnabled bool `json:"cache_enabled" yaml:"cache_enabled"`

	// CacheTTL is how long cached responses live (default 5m).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// CacheMaxEntries bounds the cache size (default 100).
	CacheMaxEntries int `json:"cache_max_entries" yaml:"cache_max_entries"`

	// DefaultPageSize is the page size when a request does not give one (default 20).
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size"`

	// MaxPageSize caps the page size for paper listings (default 100).
	MaxPageSize int `json:"max_page_size" yaml:"max_page_size"`

	// MaxMeasurementPageSize caps the page size for measurement listings (default 1000).
	MaxMeasurementPageSize int `json:"max_measurement_page_size" yaml:"max_measurement_page_size"`

	// CORSOrigins lists the origins allowed to call the API (default "*").
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Collect CollectConfig `json:"collect" yaml:"collect"`
	Oracle  OracleConfig  `json:"oracle" yaml:"oracle"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`
	Fuseki  FusekiConfig  `json:"fuseki" yaml:"fuseki"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}
