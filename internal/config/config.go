// Package config loads quiver server configuration from TOML and env vars.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Reranker  RerankerConfig  `toml:"reranker"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Store     StoreConfig     `toml:"store"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Dimensions int    `toml:"dimensions"`
	BatchSize  int    `toml:"batch_size"`
}

// RerankerConfig selects the re-ranking backend. When BaseURL is set, a
// cross-encoder rerank endpoint is used; otherwise re-ranking falls back to
// the generative LLM.
type RerankerConfig struct {
	Model       string `toml:"model"`
	BaseURL     string `toml:"base_url"`
	APIKey      string `toml:"api_key"`
	Concurrency int    `toml:"concurrency"`
}

type ChunkingConfig struct {
	Size          int `toml:"size"`
	Overlap       int `toml:"overlap"`
	ParentSize    int `toml:"parent_size"`
	ParentOverlap int `toml:"parent_overlap"`
	ChildSize     int `toml:"child_size"`
	ChildOverlap  int `toml:"child_overlap"`
}

type RetrievalConfig struct {
	TopK           int `toml:"top_k"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// StoreConfig selects the persistence backend: "sqlite" (default),
// "postgres", or "none".
type StoreConfig struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8000"},
		LLM:       LLMConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1"},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small", BaseURL: "https://api.openai.com/v1", Dimensions: 1536, BatchSize: 64},
		Reranker:  RerankerConfig{Concurrency: 4},
		Chunking: ChunkingConfig{
			Size:          1000,
			Overlap:       200,
			ParentSize:    2000,
			ParentOverlap: 200,
			ChildSize:     400,
			ChildOverlap:  50,
		},
		Retrieval: RetrievalConfig{TopK: 5, TimeoutSeconds: 60},
		Store:     StoreConfig{Backend: "sqlite", Path: "quiver.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "quiver.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("QUIVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("QUIVER_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("QUIVER_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("QUIVER_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("QUIVER_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("QUIVER_EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv("QUIVER_RERANKER_API_KEY"); v != "" {
		cfg.Reranker.APIKey = v
	}
	if v := os.Getenv("QUIVER_RERANKER_BASE_URL"); v != "" {
		cfg.Reranker.BaseURL = v
	}
	if v := os.Getenv("QUIVER_POSTGRES_URL"); v != "" {
		cfg.Store.Backend = "postgres"
		cfg.Store.PostgresURL = v
	}
	if os.Getenv("QUIVER_OBSERVER_ENABLED") == "true" || os.Getenv("QUIVER_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if cfg.Reranker.APIKey == "" {
		cfg.Reranker.APIKey = cfg.LLM.APIKey
	}

	return cfg
}
