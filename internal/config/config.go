// Package config builds the single configuration value shared by the server's components.
// Values come from defaults, an optional YAML file, and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
)

const (
	DefaultCompletionBaseURL = "https://api.groq.com/openai/v1"
	DefaultCompletionModel   = "llama-3.3-70b-versatile"
)

// Config contains all article-summarizer settings.
type Config struct {
	Completion    CompletionConfig    `yaml:"completion"`
	Summarization SummarizationConfig `yaml:"summarization"`
	Parsing       ParsingConfig       `yaml:"parsing"`
	Zotero        ZoteroConfig        `yaml:"zotero"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       logger.LogConfig    `yaml:"logging"`
}

// CompletionConfig configures the remote text-generation service.
type CompletionConfig struct {
	// APIKey enables generative summarization. Supports ${VAR} syntax.
	APIKey string `yaml:"api_key"`

	// BaseURL of an OpenAI-compatible chat completions API.
	BaseURL string `yaml:"base_url"`

	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	MapTimeout       time.Duration `yaml:"map_timeout"`
	ReduceTimeout    time.Duration `yaml:"reduce_timeout"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout"`

	// TokensPerSecond and BurstTokens bound the request rate; zero disables limiting.
	TokensPerSecond int `yaml:"tokens_per_second"`
	BurstTokens     int `yaml:"burst_tokens"`

	// MaxRetries applies to rate-limit (429) responses only.
	MaxRetries int `yaml:"max_retries"`
}

// Configured reports whether a completion credential is present.
func (c CompletionConfig) Configured() bool {
	return c.APIKey != ""
}

// SummarizationConfig configures chunking and intake limits.
type SummarizationConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	Overlap        int `yaml:"overlap"`
	InputCharLimit int `yaml:"input_char_limit"`
	MapConcurrency int `yaml:"map_concurrency"`
	MaxIngestPages int `yaml:"max_ingest_pages"`
}

// ParsingConfig configures PDF page parsing at ingest time.
type ParsingConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
}

type ZoteroConfig struct {
	APIKey    string `yaml:"api_key"`
	LibraryID string `yaml:"library_id"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// Default returns a Config with the reference calibration.
func Default() Config {
	return Config{
		Completion: CompletionConfig{
			BaseURL:          DefaultCompletionBaseURL,
			Model:            DefaultCompletionModel,
			Temperature:      0.3,
			MapTimeout:       60 * time.Second,
			ReduceTimeout:    120 * time.Second,
			SynthesisTimeout: 180 * time.Second,
			TokensPerSecond:  5000,
			BurstTokens:      40000,
			MaxRetries:       0,
		},
		Summarization: SummarizationConfig{
			ChunkSize:      8000,
			Overlap:        800,
			InputCharLimit: 50000,
			MapConcurrency: 1,
			MaxIngestPages: 100,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if non-empty),
// then environment overrides. If path is empty, SUMMARIZER_CONFIG is consulted.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SUMMARIZER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Storage.DBPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.Storage.DBPath = filepath.Join(homeDir, ".article-summarizer", "library.db")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Completion.APIKey, "GROQ_API_KEY")
	setString(&cfg.Completion.APIKey, "COMPLETION_API_KEY")
	setString(&cfg.Completion.BaseURL, "COMPLETION_BASE_URL")
	setString(&cfg.Completion.Model, "COMPLETION_MODEL")
	setInt(&cfg.Completion.MaxRetries, "COMPLETION_MAX_RETRIES")
	setInt(&cfg.Summarization.MapConcurrency, "SUMMARIZER_MAP_CONCURRENCY")
	setString(&cfg.Parsing.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.Zotero.APIKey, "ZOTERO_API_KEY")
	setString(&cfg.Zotero.LibraryID, "ZOTERO_LIBRARY_ID")
	setString(&cfg.Storage.DBPath, "SUMMARIZER_DB_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks the invariants the summarization pipeline relies on.
func (c Config) Validate() error {
	s := c.Summarization
	if s.Overlap <= 0 || s.Overlap >= s.ChunkSize {
		return fmt.Errorf("invalid chunking: overlap %d must be in (0, chunk_size %d)", s.Overlap, s.ChunkSize)
	}
	if s.InputCharLimit <= 0 {
		return errors.New("input_char_limit must be positive")
	}
	if s.MapConcurrency < 1 {
		return errors.New("map_concurrency must be at least 1")
	}
	if c.Completion.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	return nil
}
