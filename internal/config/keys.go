package config

import (
	"fmt"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "SENTID_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "SENTID_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "model.variant", typ: kString, env: "SENTID_MODEL_VARIANT",
		apply:   func(cfg *Config, v any) { cfg.Model.Variant = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Variant },
	},
	{
		key: "model.backend", typ: kString, env: "SENTID_MODEL_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Model.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Backend },
	},
	{
		key: "model.id", typ: kString, env: "SENTID_MODEL_ID",
		apply:   func(cfg *Config, v any) { cfg.Model.ID = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.ID },
	},
	{
		key: "model.labels", typ: kString, env: "SENTID_MODEL_LABELS",
		apply:   func(cfg *Config, v any) { cfg.Model.Labels = v.(string) },
		extract: func(cfg Config) any { return cfg.Model.Labels },
	},
	{
		key: "huggingface.base_url", typ: kString, env: "SENTID_HUGGINGFACE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.HuggingFace.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.HuggingFace.BaseURL },
	},
	{
		key: "huggingface.token", typ: kString, env: "SENTID_HUGGINGFACE_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.HuggingFace.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.HuggingFace.Token },
	},
	{
		key: "huggingface.timeout", typ: kDuration, env: "SENTID_HUGGINGFACE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.HuggingFace.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.HuggingFace.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "SENTID_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "SENTID_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.path", typ: kString, env: "SENTID_STORAGE_PATH",
		apply:   func(cfg *Config, v any) { cfg.Storage.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Path },
	},
	{
		key: "log.level", typ: kString, env: "SENTID_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "SENTID_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "sentry.dsn", typ: kString, env: "SENTID_SENTRY_DSN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Sentry.DSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Sentry.DSN },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration for %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		}
	}
	return nil
}
