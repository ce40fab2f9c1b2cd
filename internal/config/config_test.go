package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":8000" {
		t.Errorf("expected :8000, got %s", cfg.Server.Addr)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected 1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Chunking.ParentSize != 2000 || cfg.Chunking.ChildSize != 400 {
		t.Errorf("unexpected parent-child defaults: %+v", cfg.Chunking)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[server]
addr = ":9000"

[chunking]
size = 500
`), 0644)

	cfg := Load(path)
	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected :9000, got %s", cfg.Server.Addr)
	}
	if cfg.Chunking.Size != 500 {
		t.Errorf("expected 500, got %d", cfg.Chunking.Size)
	}
	// Defaults preserved
	if cfg.Chunking.Overlap != 200 {
		t.Errorf("default should be preserved, got %d", cfg.Chunking.Overlap)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUIVER_LLM_API_KEY", "env-key")
	t.Setenv("QUIVER_ADDR", ":7070")

	cfg := Load("/nonexistent/path.toml")
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected :7070, got %s", cfg.Server.Addr)
	}
	// Fallback: embedding and reranker get LLM key
	if cfg.Embedding.APIKey != "env-key" {
		t.Errorf("expected embedding fallback to env-key, got %s", cfg.Embedding.APIKey)
	}
	if cfg.Reranker.APIKey != "env-key" {
		t.Errorf("expected reranker fallback to env-key, got %s", cfg.Reranker.APIKey)
	}
}

func TestPostgresEnvSelectsBackend(t *testing.T) {
	t.Setenv("QUIVER_POSTGRES_URL", "postgres://localhost/quiver")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Store.Backend != "postgres" {
		t.Errorf("expected postgres backend, got %s", cfg.Store.Backend)
	}
	if cfg.Store.PostgresURL != "postgres://localhost/quiver" {
		t.Errorf("unexpected url: %s", cfg.Store.PostgresURL)
	}
}
