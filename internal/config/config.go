package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	VectorIndexMemory = "memory"
)

type Config struct {
	Port        int               `json:"port"`
	HTTP        HTTPConfig        `json:"http"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	Database    DatabaseConfig    `json:"database"`
	VectorIndex VectorIndexConfig `json:"vector_index"`
	AI          AIConfig          `json:"ai"`
	Chunker     ChunkerConfig     `json:"chunker"`
	Retriever   RetrieverConfig   `json:"retriever"`
	DNA         DNAConfig         `json:"dna"`
	Insight     InsightConfig     `json:"insight"`
	Jobs        JobsConfig        `json:"jobs"`
}

type HTTPConfig struct {
	// CORSOrigins empty allows every origin.
	CORSOrigins []string `json:"cors_origins"`
	// AnalysisRateLimitSeconds is the per-owner window for graph and insight
	// requests. 0 disables it.
	AnalysisRateLimitSeconds int `json:"analysis_rate_limit_seconds"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"`
}

type VectorIndexConfig struct {
	// Type is memory, postgres or sqlite. It defaults to the database driver.
	Type string `json:"type"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Model          string      `json:"model"`
	EmbedProvider  string      `json:"embed_provider"`
	EmbedModel     string      `json:"embed_model"`
	Timeout        int         `json:"timeout"`
	MaxInputChars  int         `json:"max_input_chars"`
	EmbedCacheSize int         `json:"embed_cache_size"`
	EmbedCacheTTL  int         `json:"embed_cache_ttl_minutes"`
	EmbedCacheInDB bool        `json:"embed_cache_in_db"`
	Data           interface{} `json:"data"`
	APIKey         string      `json:"api_key"`
	BaseURL        string      `json:"base_url"`
	// Fallbacks are tried in order when the primary provider fails.
	Fallbacks []AIFallbackConfig `json:"fallbacks"`
}

type AIFallbackConfig struct {
	Provider   string      `json:"provider"`
	Model      string      `json:"model"`
	EmbedModel string      `json:"embed_model"`
	Data       interface{} `json:"data"`
	APIKey     string      `json:"api_key"`
	BaseURL    string      `json:"base_url"`
}

type ChunkerConfig struct {
	TargetSize int `json:"target_size"`
	Overlap    int `json:"overlap"`
}

type RetrieverConfig struct {
	CacheSize    int     `json:"cache_size"`
	CacheTTLHour int     `json:"cache_ttl_hours"`
	DefaultK     int     `json:"default_k"`
	MinRelevance float64 `json:"min_relevance"`
}

type DNAConfig struct {
	CacheSize       int `json:"cache_size"`
	CacheTTLMinutes int `json:"cache_ttl_minutes"`
}

type InsightConfig struct {
	// PlaceholderPolicy is "empty" (default) or "heuristic".
	PlaceholderPolicy string `json:"placeholder_policy"`
}

type JobsConfig struct {
	ReindexSpec          string `json:"reindex_spec"`
	ReindexBatch         int    `json:"reindex_batch"`
	EmbedCacheCleanSpec  string `json:"embed_cache_clean_spec"`
	EmbedCacheMaxAgeDays int    `json:"embed_cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets live outside the config file.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DOCMIND_AI_API_KEY")); v != "" {
		cfg.AI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("DOCMIND_DB_DSN")); v != "" {
		cfg.Database.DSN = v
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.DSN == "" && cfg.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
	case DriverSQLite:
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = cfg.Database.Driver
	}
	switch cfg.VectorIndex.Type {
	case VectorIndexMemory:
	case DriverPostgres, DriverSQLite:
		if cfg.VectorIndex.Type != cfg.Database.Driver {
			return fmt.Errorf("vector_index.type %s needs database.driver %s", cfg.VectorIndex.Type, cfg.VectorIndex.Type)
		}
	default:
		return fmt.Errorf("vector_index.type must be memory, postgres or sqlite")
	}
	if cfg.AI.EmbedProvider == "" {
		cfg.AI.EmbedProvider = cfg.AI.Provider
	}
	for i, fb := range cfg.AI.Fallbacks {
		if fb.Provider == "" {
			return fmt.Errorf("ai.fallbacks[%d].provider is required", i)
		}
		if fb.Model == "" && fb.EmbedModel == "" {
			return fmt.Errorf("ai.fallbacks[%d] needs model or embed_model", i)
		}
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 2000
	}
	if cfg.AI.EmbedCacheTTL == 0 {
		cfg.AI.EmbedCacheTTL = 60
	}
	if cfg.Chunker.TargetSize == 0 {
		cfg.Chunker.TargetSize = 1000
	}
	if cfg.Chunker.Overlap == 0 {
		cfg.Chunker.Overlap = 200
	}
	if cfg.Retriever.CacheSize == 0 {
		cfg.Retriever.CacheSize = 1000
	}
	if cfg.Retriever.CacheTTLHour == 0 {
		cfg.Retriever.CacheTTLHour = 7 * 24
	}
	if cfg.Retriever.DefaultK == 0 {
		cfg.Retriever.DefaultK = 5
	}
	if cfg.DNA.CacheSize == 0 {
		cfg.DNA.CacheSize = 100
	}
	if cfg.DNA.CacheTTLMinutes == 0 {
		cfg.DNA.CacheTTLMinutes = 60
	}
	switch cfg.Insight.PlaceholderPolicy {
	case "":
		cfg.Insight.PlaceholderPolicy = "empty"
	case "empty", "heuristic":
	default:
		return fmt.Errorf("insight.placeholder_policy must be empty or heuristic")
	}
	if cfg.Jobs.ReindexBatch == 0 {
		cfg.Jobs.ReindexBatch = 20
	}
	if cfg.Jobs.EmbedCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbedCacheMaxAgeDays = 30
	}
	return nil
}

// ProviderArgs is the value handed to ai.NewProvider: the free-form data block
// when present, otherwise the flat api_key/base_url pair.
func (c AIConfig) ProviderArgs() interface{} {
	return providerArgs(c.Data, c.APIKey, c.BaseURL)
}

func (f AIFallbackConfig) ProviderArgs() interface{} {
	return providerArgs(f.Data, f.APIKey, f.BaseURL)
}

func providerArgs(data interface{}, apiKey, baseURL string) interface{} {
	if data != nil {
		return data
	}
	return map[string]string{"api_key": apiKey, "base_url": baseURL}
}
