package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Deployment variants. A store only ever holds records of one variant.
const (
	VariantSentiment = "sentiment"
	VariantEmotions  = "emotions"
)

// Classifier backends.
const (
	BackendHuggingFace = "huggingface"
	BackendOllama      = "ollama"
)

// Default model identifiers per variant.
const (
	DefaultSentimentModel = "distilbert-base-uncased-finetuned-sst-2-english"
	DefaultEmotionsModel  = "SamLowe/roberta-base-go_emotions"
)

type Config struct {
	Server      ServerConfig
	Model       ModelConfig
	HuggingFace HuggingFaceConfig
	Ollama      OllamaConfig
	Storage     StorageConfig
	Log         LogConfig
	Sentry      SentryConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type ModelConfig struct {
	Variant string
	Backend string
	// ID is the model identifier passed to the backend. Empty selects the
	// variant default.
	ID string
	// Labels optionally overrides the label set as a comma-separated list.
	Labels string
}

type HuggingFaceConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

type SentryConfig struct {
	DSN string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Model: ModelConfig{
			Variant: VariantSentiment,
			Backend: BackendHuggingFace,
		},
		HuggingFace: HuggingFaceConfig{
			BaseURL: "https://router.huggingface.co/hf-inference/models",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "phi3.5",
		},
		Storage: StorageConfig{
			Path: "sentiment.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the YAML file at
// $XDG_CONFIG_HOME/sentid/config.yaml (when present) with SENTID_*
// environment variables taking precedence, then validates the result.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Model.Variant {
	case VariantSentiment, VariantEmotions:
	default:
		return fmt.Errorf("model.variant must be %q or %q, got %q", VariantSentiment, VariantEmotions, c.Model.Variant)
	}
	switch c.Model.Backend {
	case BackendHuggingFace:
		if c.HuggingFace.BaseURL == "" {
			return errors.New("huggingface.base_url is required for the huggingface backend")
		}
	case BackendOllama:
		if c.Ollama.BaseURL == "" || c.Ollama.Model == "" {
			return errors.New("ollama.base_url and ollama.model are required for the ollama backend")
		}
	default:
		return fmt.Errorf("model.backend must be %q or %q, got %q", BackendHuggingFace, BackendOllama, c.Model.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.HuggingFace.Timeout < 0 {
		return errors.New("huggingface.timeout must not be negative")
	}
	return nil
}

// ModelID returns the configured model identifier or the variant default.
func (c Config) ModelID() string {
	if c.Model.ID != "" {
		return c.Model.ID
	}
	if c.Model.Variant == VariantEmotions {
		return DefaultEmotionsModel
	}
	return DefaultSentimentModel
}

// LabelOverride returns the configured label set, or nil when the model's own
// label set should be used.
func (c Config) LabelOverride() []string {
	if strings.TrimSpace(c.Model.Labels) == "" {
		return nil
	}
	var labels []string
	for _, l := range strings.Split(c.Model.Labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return labels
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "sentid", "config.yaml")
}
