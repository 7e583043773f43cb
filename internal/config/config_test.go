package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SUMMARIZER_CONFIG", "GROQ_API_KEY", "COMPLETION_API_KEY", "COMPLETION_BASE_URL",
		"COMPLETION_MODEL", "COMPLETION_MAX_RETRIES", "SUMMARIZER_MAP_CONCURRENCY",
		"OPENAI_API_KEY", "ZOTERO_API_KEY", "ZOTERO_LIBRARY_ID",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("SUMMARIZER_DB_PATH", filepath.Join(t.TempDir(), "library.db"))
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Summarization.ChunkSize != 8000 || cfg.Summarization.Overlap != 800 {
		t.Errorf("chunking = %d/%d, want 8000/800", cfg.Summarization.ChunkSize, cfg.Summarization.Overlap)
	}
	if cfg.Summarization.InputCharLimit != 50000 {
		t.Errorf("InputCharLimit = %d, want 50000", cfg.Summarization.InputCharLimit)
	}
	if cfg.Completion.MapTimeout != 60*time.Second ||
		cfg.Completion.ReduceTimeout != 120*time.Second ||
		cfg.Completion.SynthesisTimeout != 180*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg.Completion)
	}
	if cfg.Completion.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Completion.MaxRetries)
	}
	if cfg.Completion.Configured() {
		t.Error("default config should not have a completion credential")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("COMPLETION_MODEL", "llama-3.1-8b-instant")
	t.Setenv("SUMMARIZER_MAP_CONCURRENCY", "4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.APIKey != "gsk-test" {
		t.Errorf("APIKey = %q", cfg.Completion.APIKey)
	}
	if cfg.Completion.Model != "llama-3.1-8b-instant" {
		t.Errorf("Model = %q", cfg.Completion.Model)
	}
	if cfg.Summarization.MapConcurrency != 4 {
		t.Errorf("MapConcurrency = %d, want 4", cfg.Summarization.MapConcurrency)
	}
	if cfg.Completion.BaseURL != DefaultCompletionBaseURL {
		t.Errorf("BaseURL = %q", cfg.Completion.BaseURL)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("MY_GROQ_KEY", "from-env-expansion")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `completion:
  api_key: ${MY_GROQ_KEY}
  reduce_timeout: 90s
summarization:
  chunk_size: 6000
  overlap: 600
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Completion.APIKey != "from-env-expansion" {
		t.Errorf("APIKey = %q, want expanded value", cfg.Completion.APIKey)
	}
	if cfg.Completion.ReduceTimeout != 90*time.Second {
		t.Errorf("ReduceTimeout = %v, want 90s", cfg.Completion.ReduceTimeout)
	}
	if cfg.Summarization.ChunkSize != 6000 || cfg.Summarization.Overlap != 600 {
		t.Errorf("chunking = %d/%d", cfg.Summarization.ChunkSize, cfg.Summarization.Overlap)
	}
	// Untouched values keep their defaults
	if cfg.Completion.MapTimeout != 60*time.Second {
		t.Errorf("MapTimeout = %v, want default", cfg.Completion.MapTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero overlap", func(c *Config) { c.Summarization.Overlap = 0 }, true},
		{"overlap equals chunk", func(c *Config) { c.Summarization.Overlap = c.Summarization.ChunkSize }, true},
		{"no input limit", func(c *Config) { c.Summarization.InputCharLimit = 0 }, true},
		{"zero concurrency", func(c *Config) { c.Summarization.MapConcurrency = 0 }, true},
		{"negative retries", func(c *Config) { c.Completion.MaxRetries = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
