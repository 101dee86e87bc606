package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the mapmapmap API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Places     PlacesConfig     `yaml:"places"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PlacesConfig holds places-search provider settings.
type PlacesConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	RadiusKm        float64 `yaml:"radius_km"`
	ExpansionFactor float64 `yaml:"expansion_factor"`
	MaxResults      int     `yaml:"max_results"`
	MaxRetries      int     `yaml:"max_retries"`
}

// EnrichmentConfig holds the generative vibe provider settings.
type EnrichmentConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	MaxRetries       int    `yaml:"max_retries"`
	BreakerThreshold int    `yaml:"breaker_threshold"`
	Concurrency      int    `yaml:"concurrency"`
	MaxVenues        int    `yaml:"max_venues"`
}

// EmbeddingConfig holds the embedding provider settings for free-text search.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// CacheConfig holds vibe cache settings.
type CacheConfig struct {
	TTLDays int `yaml:"ttl_days"`
}

// SearchConfig holds free-text vector search settings.
type SearchConfig struct {
	TopK              int     `yaml:"top_k"`
	MaxVectorDistance float64 `yaml:"max_vector_distance"`
	RadiusKm          float64 `yaml:"radius_km"`
	HNSWM             int     `yaml:"hnsw_m"`
	HNSWEFConstruct   int     `yaml:"hnsw_ef_construction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Mood search fans out to the generative provider; allow for
		// retries before the response writer gives up.
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = "https://places.googleapis.com/v1"
	}
	if c.Places.RadiusKm <= 0 {
		c.Places.RadiusKm = 10
	}
	if c.Places.ExpansionFactor <= 0 {
		c.Places.ExpansionFactor = 1.5
	}
	if c.Places.MaxResults <= 0 {
		c.Places.MaxResults = 20
	}
	if c.Places.MaxRetries <= 0 {
		c.Places.MaxRetries = 3
	}
	if c.Enrichment.Model == "" {
		c.Enrichment.Model = "gpt-4o-mini"
	}
	if c.Enrichment.TimeoutSec <= 0 {
		c.Enrichment.TimeoutSec = 10
	}
	if c.Enrichment.MaxRetries <= 0 {
		c.Enrichment.MaxRetries = 2
	}
	if c.Enrichment.BreakerThreshold <= 0 {
		c.Enrichment.BreakerThreshold = 5
	}
	if c.Enrichment.Concurrency <= 0 {
		c.Enrichment.Concurrency = 5
	}
	if c.Enrichment.MaxVenues <= 0 {
		c.Enrichment.MaxVenues = 20
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 5000
	}
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = 7
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = 50
	}
	if c.Search.MaxVectorDistance <= 0 {
		c.Search.MaxVectorDistance = 0.85
	}
	if c.Search.RadiusKm <= 0 {
		c.Search.RadiusKm = 10
	}
	if c.Search.HNSWM <= 0 {
		c.Search.HNSWM = 32
	}
	if c.Search.HNSWEFConstruct <= 0 {
		c.Search.HNSWEFConstruct = 400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Places.ExpansionFactor < 1 {
		return fmt.Errorf("places.expansion_factor must be >= 1, got %g", c.Places.ExpansionFactor)
	}
	if c.Search.MaxVectorDistance > 2 {
		return fmt.Errorf("search.max_vector_distance must be <= 2 (cosine), got %g", c.Search.MaxVectorDistance)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
